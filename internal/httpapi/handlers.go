package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/societyhub/internal/apperr"
	"github.com/mmynk/societyhub/internal/ledger"
	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/service"
)

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, user, err := s.svc.Auth.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: toUser(user)})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	user, err := s.svc.Auth.CurrentUser(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: toUser(user), AdminSocietyIDs: p.AdminSocietyIDs})
}

// Societies, members, buildings and flats

func (s *Server) createSociety(w http.ResponseWriter, r *http.Request) {
	var req societyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	society, err := s.svc.Societies.CreateSociety(r.Context(), principal(r), service.SocietyInput(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSociety(society))
}

func (s *Server) listSocieties(w http.ResponseWriter, r *http.Request) {
	societies, err := s.svc.Societies.ListSocieties(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(societies, toSociety))
}

func (s *Server) addAdmin(w http.ResponseWriter, r *http.Request) {
	var req addAdminRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Societies.AddAdmin(r.Context(), principal(r), chi.URLParam(r, "id"), req.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.svc.Societies.CreateMember(r.Context(), principal(r), service.MemberInput{
		SocietyID: req.SocietyID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Password:  req.Password,
		Role:      models.Role(req.Role),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUser(user))
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Societies.ListUsers(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(users, toUser))
}

func (s *Server) createBuilding(w http.ResponseWriter, r *http.Request) {
	var req buildingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	building, err := s.svc.Societies.CreateBuilding(r.Context(), principal(r), service.BuildingInput(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBuilding(building))
}

func (s *Server) listBuildings(w http.ResponseWriter, r *http.Request) {
	buildings, err := s.svc.Societies.ListBuildings(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(buildings, toBuilding))
}

func (s *Server) createFlat(w http.ResponseWriter, r *http.Request) {
	var req flatRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	flat, err := s.svc.Societies.CreateFlat(r.Context(), principal(r), service.FlatInput(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFlat(flat))
}

func (s *Server) listFlats(w http.ResponseWriter, r *http.Request) {
	flats, err := s.svc.Societies.ListFlats(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(flats, toFlat))
}

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, apperr.Invalid("limit must be a number"))
			return
		}
		limit = n
	}
	entries, err := s.svc.Societies.ListAudit(r.Context(), principal(r), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(entries, func(e *models.AuditEntry) auditResponse {
		return auditResponse(*e)
	}))
}

// Tenancy

func (s *Server) createTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := s.svc.Tenancy.CreateTenant(r.Context(), principal(r), service.TenantInput(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUser(tenant))
}

func (s *Server) updateTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantPatchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := s.svc.Tenancy.UpdateTenant(r.Context(), principal(r), chi.URLParam(r, "id"), service.TenantUpdate(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(tenant))
}

func (s *Server) setTenantStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := s.svc.Tenancy.SetTenantStatus(r.Context(), chi.URLParam(r, "id"), models.Status(req.Status), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(tenant))
}

func (s *Server) createAgreement(w http.ResponseWriter, r *http.Request) {
	var req agreementRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := service.AgreementInput{
		FlatID:    req.FlatID,
		TenantID:  req.TenantID,
		FileURL:   req.FileURL,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Rent:      req.Rent,
		Deposit:   req.Deposit,
		Witnesses: req.Witnesses,
	}
	for _, d := range req.Documents {
		in.Documents = append(in.Documents, service.SupportingDocument{UploadedBy: d.UploadedBy, Kind: d.Kind, FileURL: d.FileURL})
	}

	agreement, err := s.svc.Tenancy.CreateAgreement(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAgreement(agreement))
}

func (s *Server) listAgreements(w http.ResponseWriter, r *http.Request) {
	agreements, err := s.svc.Tenancy.ListAgreements(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(agreements, toAgreement))
}

func (s *Server) currentTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := s.svc.Tenancy.CurrentTenantOf(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tenant == nil {
		writeJSON(w, http.StatusOK, map[string]any{"tenant": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenant": toUser(tenant)})
}

// uploadDocument accepts either a multipart upload in the "file" field or a
// JSON body referencing an already stored file.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	p := principal(r)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			SubjectID   string `json:"subject_id"`
			Kind        string `json:"kind"`
			FileURL     string `json:"file_url"`
			AgreementID string `json:"agreement_id"`
		}
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		doc, err := s.svc.Tenancy.AttachDocument(r.Context(), p, service.DocumentInput(req))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDocument(doc))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, r, apperr.Invalid("invalid upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperr.Invalid("file required"))
		return
	}
	defer file.Close()

	doc, err := s.svc.Tenancy.UploadDocument(r.Context(), p, r.FormValue("subject_id"), r.FormValue("kind"), header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocument(doc))
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.svc.Tenancy.ListDocuments(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(docs, toDocument))
}

// Notices

func (s *Server) listNotices(w http.ResponseWriter, r *http.Request) {
	notices, err := s.svc.Notices.VisibleNotices(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(notices, toNotice))
}

func (s *Server) countNotices(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Notices.CountVisibleNotices(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (s *Server) createNotice(w http.ResponseWriter, r *http.Request) {
	var req noticeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	notice, err := s.svc.Notices.CreateNotice(r.Context(), principal(r), service.NoticeInput(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNotice(notice))
}

func (s *Server) markNoticeRead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Notices.MarkRead(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteNotice(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Notices.DeleteNotice(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Bills

func (b billRequest) input() service.BillInput {
	return service.BillInput{
		Title:       b.Title,
		Description: b.Description,
		Cost:        b.Cost,
		Type:        models.BillType(b.Type),
		AssignedTo:  b.AssignedTo,
	}
}

func (s *Server) createBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bill, err := s.svc.Bills.CreateBill(r.Context(), principal(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBill(bill))
}

func (s *Server) raiseShared(w http.ResponseWriter, r *http.Request) {
	var req sharedBillRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bills, err := s.svc.Bills.RaiseShared(r.Context(), principal(r), req.input(), req.Assignees)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapSlice(bills, toBill))
}

func (s *Server) listBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.svc.Bills.ListBills(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(bills, toBill))
}

func (s *Server) markPaid(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bill, err := s.svc.Bills.MarkPaid(r.Context(), chi.URLParam(r, "id"), principal(r), req.ProofURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBill(bill))
}

func (s *Server) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bill, err := s.svc.Bills.VerifyPayment(r.Context(), chi.URLParam(r, "id"), principal(r), service.Decision(req.Decision))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBill(bill))
}

func (s *Server) advanceComplaint(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bill, err := s.svc.Bills.AdvanceComplaint(r.Context(), chi.URLParam(r, "id"), principal(r), models.BillStatus(req.Status), req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBill(bill))
}

func (s *Server) billEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.Bills.History(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(events, func(e *models.BillEvent) billEventResponse {
		return billEventResponse{From: string(e.FromStatus), To: string(e.ToStatus), ActorID: e.ActorID, Note: e.Note, CreatedAt: e.CreatedAt}
	}))
}

func (s *Server) dues(w http.ResponseWriter, r *http.Request) {
	members, payments, err := s.svc.Bills.Dues(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if members == nil {
		members = []ledger.MemberDues{}
	}
	if payments == nil {
		payments = []ledger.DebtEdge{}
	}
	writeJSON(w, http.StatusOK, duesResponse{Members: members, Payments: payments})
}
