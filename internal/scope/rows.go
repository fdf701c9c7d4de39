package scope

import "github.com/mmynk/societyhub/internal/models"

// SocietyRow treats a society as belonging to itself.
func SocietyRow(s *models.Society) Row {
	return Row{SocietyID: s.ID}
}

func BuildingRow(b *models.Building) Row {
	return Row{SocietyID: b.SocietyID}
}

func FlatRow(f *models.Flat) Row {
	return Row{SocietyID: f.SocietyID, OwnerID: f.OwnerID}
}

func UserRow(u *models.User) Row {
	return Row{SocietyID: u.SocietyID, Role: u.Role}
}

func AgreementRow(a *models.Agreement) Row {
	return Row{SocietyID: a.SocietyID, OwnerID: a.OwnerID, TenantID: a.TenantID}
}

func NoticeRow(n *models.Notice) Row {
	return Row{SocietyID: n.SocietyID, CreatedBy: n.CreatedBy}
}

func BillRow(b *models.Bill) Row {
	return Row{SocietyID: b.SocietyID, RaisedBy: b.RaisedBy, AssignedTo: b.AssignedTo}
}

func DocumentRow(d *models.Document) Row {
	return Row{SocietyID: d.SocietyID, UploadedBy: d.UploadedBy, AddedBy: d.AddedBy}
}
