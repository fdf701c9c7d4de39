package httpapi

import (
	"github.com/mmynk/societyhub/internal/ledger"
	"github.com/mmynk/societyhub/internal/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Email     string  `json:"email,omitempty"`
	Role      string  `json:"role"`
	SocietyID string  `json:"society_id,omitempty"`
	Status    string  `json:"status"`
	FlatID    string  `json:"flat_id,omitempty"`
	Address   string  `json:"address,omitempty"`
	Gender    string  `json:"gender,omitempty"`
	MoveIn    int64   `json:"move_in,omitempty"`
	MoveOut   int64   `json:"move_out,omitempty"`
	Rent      float64 `json:"rent,omitempty"`
	Deposit   float64 `json:"deposit,omitempty"`
	CreatedAt int64   `json:"created_at"`
}

func toUser(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Phone:     u.Phone,
		Email:     u.Email,
		Role:      string(u.Role),
		SocietyID: u.SocietyID,
		Status:    string(u.Status),
		FlatID:    u.FlatID,
		Address:   u.Address,
		Gender:    u.Gender,
		MoveIn:    u.MoveIn,
		MoveOut:   u.MoveOut,
		Rent:      u.Rent,
		Deposit:   u.Deposit,
		CreatedAt: u.CreatedAt,
	}
}

type meResponse struct {
	User            userResponse `json:"user"`
	AdminSocietyIDs []string     `json:"admin_society_ids,omitempty"`
}

type societyRequest struct {
	Name              string `json:"name"`
	Country           string `json:"country"`
	City              string `json:"city"`
	Area              string `json:"area"`
	MobileNumber      string `json:"mobile_number"`
	SubscriptionStart int64  `json:"subscription_start"`
	SubscriptionEnd   int64  `json:"subscription_end"`
}

type societyResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Country           string `json:"country,omitempty"`
	City              string `json:"city,omitempty"`
	Area              string `json:"area,omitempty"`
	MobileNumber      string `json:"mobile_number,omitempty"`
	Status            string `json:"status"`
	SubscriptionStart int64  `json:"subscription_start,omitempty"`
	SubscriptionEnd   int64  `json:"subscription_end,omitempty"`
	CreatedAt         int64  `json:"created_at"`
}

func toSociety(s *models.Society) societyResponse {
	return societyResponse{
		ID:                s.ID,
		Name:              s.Name,
		Country:           s.Country,
		City:              s.City,
		Area:              s.Area,
		MobileNumber:      s.MobileNumber,
		Status:            string(s.Status),
		SubscriptionStart: s.SubscriptionStart,
		SubscriptionEnd:   s.SubscriptionEnd,
		CreatedAt:         s.CreatedAt,
	}
}

type addAdminRequest struct {
	UserID string `json:"user_id"`
}

type memberRequest struct {
	SocietyID string `json:"society_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type buildingRequest struct {
	SocietyID  string `json:"society_id"`
	Name       string `json:"name"`
	TotalUnits int    `json:"total_units"`
}

type buildingResponse struct {
	ID         string `json:"id"`
	SocietyID  string `json:"society_id"`
	Name       string `json:"name"`
	TotalUnits int    `json:"total_units"`
	CreatedAt  int64  `json:"created_at"`
}

func toBuilding(b *models.Building) buildingResponse {
	return buildingResponse{ID: b.ID, SocietyID: b.SocietyID, Name: b.Name, TotalUnits: b.TotalUnits, CreatedAt: b.CreatedAt}
}

type flatRequest struct {
	BuildingID string `json:"building_id"`
	FlatNo     string `json:"flat_no"`
	OwnerID    string `json:"owner_id"`
}

type flatResponse struct {
	ID         string `json:"id"`
	SocietyID  string `json:"society_id"`
	BuildingID string `json:"building_id,omitempty"`
	FlatNo     string `json:"flat_no"`
	OwnerID    string `json:"owner_id,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

func toFlat(f *models.Flat) flatResponse {
	return flatResponse{ID: f.ID, SocietyID: f.SocietyID, BuildingID: f.BuildingID, FlatNo: f.FlatNo, OwnerID: f.OwnerID, CreatedAt: f.CreatedAt}
}

type tenantRequest struct {
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FlatID   string  `json:"flat_id"`
	Address  string  `json:"address"`
	Gender   string  `json:"gender"`
	MoveIn   int64   `json:"move_in"`
	Rent     float64 `json:"rent"`
	Deposit  float64 `json:"deposit"`
}

type tenantPatchRequest struct {
	Name    *string  `json:"name"`
	Email   *string  `json:"email"`
	FlatID  *string  `json:"flat_id"`
	Address *string  `json:"address"`
	Gender  *string  `json:"gender"`
	MoveIn  *int64   `json:"move_in"`
	Rent    *float64 `json:"rent"`
	Deposit *float64 `json:"deposit"`
}

type statusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type agreementRequest struct {
	FlatID    string   `json:"flat_id"`
	TenantID  string   `json:"tenant_id"`
	FileURL   string   `json:"file_url"`
	StartDate int64    `json:"start_date"`
	EndDate   int64    `json:"end_date"`
	Rent      float64  `json:"rent"`
	Deposit   float64  `json:"deposit"`
	Witnesses []string `json:"witnesses"`
	Documents []struct {
		UploadedBy string `json:"uploaded_by"`
		Kind       string `json:"kind"`
		FileURL    string `json:"file_url"`
	} `json:"documents"`
}

type agreementResponse struct {
	ID        string   `json:"id"`
	SocietyID string   `json:"society_id"`
	FlatID    string   `json:"flat_id"`
	OwnerID   string   `json:"owner_id"`
	TenantID  string   `json:"tenant_id"`
	FileURL   string   `json:"file_url"`
	StartDate int64    `json:"start_date"`
	EndDate   int64    `json:"end_date,omitempty"`
	Rent      float64  `json:"rent"`
	Deposit   float64  `json:"deposit"`
	Witnesses []string `json:"witnesses"`
	CreatedAt int64    `json:"created_at"`
}

func toAgreement(a *models.Agreement) agreementResponse {
	witnesses := a.Witnesses
	if witnesses == nil {
		witnesses = []string{}
	}
	return agreementResponse{
		ID:        a.ID,
		SocietyID: a.SocietyID,
		FlatID:    a.FlatID,
		OwnerID:   a.OwnerID,
		TenantID:  a.TenantID,
		FileURL:   a.FileURL,
		StartDate: a.StartDate,
		EndDate:   a.EndDate,
		Rent:      a.Rent,
		Deposit:   a.Deposit,
		Witnesses: witnesses,
		CreatedAt: a.CreatedAt,
	}
}

type documentResponse struct {
	ID          string `json:"id"`
	SocietyID   string `json:"society_id"`
	UploadedBy  string `json:"uploaded_by"`
	AddedBy     string `json:"added_by"`
	Kind        string `json:"kind"`
	FileURL     string `json:"file_url"`
	AgreementID string `json:"agreement_id,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

func toDocument(d *models.Document) documentResponse {
	return documentResponse{
		ID:          d.ID,
		SocietyID:   d.SocietyID,
		UploadedBy:  d.UploadedBy,
		AddedBy:     d.AddedBy,
		Kind:        d.Kind,
		FileURL:     d.FileURL,
		AgreementID: d.AgreementID,
		CreatedAt:   d.CreatedAt,
	}
}

type noticeRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	Recipients  []string `json:"recipients"`
}

type noticeResponse struct {
	ID          string   `json:"id"`
	SocietyID   string   `json:"society_id"`
	CreatedBy   string   `json:"created_by"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Recipients  []string `json:"recipients"`
	Read        bool     `json:"read"`
	CreatedAt   int64    `json:"created_at"`
}

func toNotice(n *models.Notice) noticeResponse {
	recipients := n.Recipients
	if recipients == nil {
		recipients = []string{}
	}
	return noticeResponse{
		ID:          n.ID,
		SocietyID:   n.SocietyID,
		CreatedBy:   n.CreatedBy,
		Title:       n.Title,
		Description: n.Description,
		ImageURL:    n.ImageURL,
		Recipients:  recipients,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt,
	}
}

type countResponse struct {
	Count int `json:"count"`
}

type billRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	Type        string  `json:"type"`
	AssignedTo  string  `json:"assigned_to"`
}

type sharedBillRequest struct {
	billRequest
	Assignees []string `json:"assignees"`
}

type payRequest struct {
	ProofURL string `json:"proof_url"`
}

type verifyRequest struct {
	Decision string `json:"decision"`
}

type billResponse struct {
	ID              string  `json:"id"`
	SocietyID       string  `json:"society_id"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	Cost            float64 `json:"cost"`
	Type            string  `json:"type"`
	Status          string  `json:"status"`
	RaisedBy        string  `json:"raised_by"`
	AssignedTo      string  `json:"assigned_to"`
	PaymentProofURL string  `json:"payment_proof_url,omitempty"`
	PaymentBy       string  `json:"payment_by,omitempty"`
	CreatedAt       int64   `json:"created_at"`
	UpdatedAt       int64   `json:"updated_at"`
}

func toBill(b *models.Bill) billResponse {
	return billResponse{
		ID:              b.ID,
		SocietyID:       b.SocietyID,
		Title:           b.Title,
		Description:     b.Description,
		Cost:            b.Cost,
		Type:            string(b.Type),
		Status:          string(b.Status),
		RaisedBy:        b.RaisedBy,
		AssignedTo:      b.AssignedTo,
		PaymentProofURL: b.PaymentProofURL,
		PaymentBy:       b.PaymentBy,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

type billEventResponse struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	ActorID   string `json:"actor_id"`
	Note      string `json:"note,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type duesResponse struct {
	Members  []ledger.MemberDues `json:"members"`
	Payments []ledger.DebtEdge   `json:"payments"`
}

type auditResponse struct {
	ID         string `json:"id"`
	SocietyID  string `json:"society_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Action     string `json:"action"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Detail     string `json:"detail,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// mapSlice converts each element with fn. It never returns nil so empty
// lists encode as [].
func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
