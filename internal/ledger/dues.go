package ledger

import (
	"sort"

	"github.com/mmynk/societyhub/internal/models"
)

// MemberDues summarizes what one member owes and is owed across bills.
type MemberDues struct {
	MemberID string `json:"member_id"`

	// Owes is the unpaid total of bills assigned to the member, including
	// bills whose payment still awaits verification.
	Owes float64 `json:"owes"`

	// Owed is the unpaid total of bills the member raised.
	Owed float64 `json:"owed"`

	// Pending is the part of Owes that is waiting for verification.
	Pending float64 `json:"pending"`

	// Paid is the total of the member's closed bills.
	Paid float64 `json:"paid"`

	// Net is Owed minus Owes. Positive means the member is owed money.
	Net float64 `json:"net"`
}

// DebtEdge is a suggested payment after netting.
type DebtEdge struct {
	From   string  `json:"from"` // member who pays
	To     string  `json:"to"`   // member who receives
	Amount float64 `json:"amount"`
}

// outstanding reports whether a bill still counts as money due.
func outstanding(s models.BillStatus) bool {
	return s == models.BillOpen || s == models.BillPaymentPending
}

// ComputeDues aggregates bills per member and nets the result into the
// fewest payments. Bills without cost or without both parties are skipped,
// as are bills a member raised against themselves.
//
// Algorithm:
//   - outstanding bill: assignee Owes += cost, raiser Owed += cost
//   - closed bill: assignee Paid += cost
//   - net = owed - owes; debtors are matched greedily with creditors
func ComputeDues(bills []*models.Bill) ([]MemberDues, []DebtEdge) {
	dues := make(map[string]*MemberDues)
	get := func(id string) *MemberDues {
		d, ok := dues[id]
		if !ok {
			d = &MemberDues{MemberID: id}
			dues[id] = d
		}
		return d
	}

	for _, b := range bills {
		if b.Cost <= 0 || b.RaisedBy == "" || b.AssignedTo == "" || b.RaisedBy == b.AssignedTo {
			continue
		}
		switch {
		case outstanding(b.Status):
			get(b.AssignedTo).Owes += b.Cost
			get(b.RaisedBy).Owed += b.Cost
			if b.Status == models.BillPaymentPending {
				get(b.AssignedTo).Pending += b.Cost
			}
		case b.Status == models.BillClosed:
			get(b.AssignedTo).Paid += b.Cost
		}
	}

	members := make([]MemberDues, 0, len(dues))
	for _, d := range dues {
		d.Net = d.Owed - d.Owes
		members = append(members, *d)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].MemberID < members[j].MemberID })

	return members, simplify(members)
}

// simplify matches the largest debtors with the largest creditors.
func simplify(members []MemberDues) []DebtEdge {
	var debtors, creditors []MemberDues
	for _, m := range members {
		if m.Net < -0.005 {
			debtors = append(debtors, m)
		} else if m.Net > 0.005 {
			creditors = append(creditors, m)
		}
	}
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].Net < debtors[j].Net })
	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].Net > creditors[j].Net })

	debt := make([]float64, len(debtors))
	for i, d := range debtors {
		debt[i] = -d.Net
	}
	credit := make([]float64, len(creditors))
	for j, c := range creditors {
		credit[j] = c.Net
	}

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := min(debt[i], credit[j])
		if amount > 0.005 {
			edges = append(edges, DebtEdge{From: debtors[i].MemberID, To: creditors[j].MemberID, Amount: roundCents(amount)})
		}
		debt[i] -= amount
		credit[j] -= amount
		if debt[i] < 0.005 {
			i++
		}
		if credit[j] < 0.005 {
			j++
		}
	}
	return edges
}
