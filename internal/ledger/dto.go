package ledger

import "github.com/fkhayef/splitledger/internal/money"

// Balance states as seen by the viewpoint user.
const (
	StatusOwesYou = "owes_you"
	StatusYouOwe  = "you_owe"
	StatusSettled = "settled"
)

// BalanceResponse represents one balance line
type BalanceResponse struct {
	CounterpartUserID int64      `json:"counterpart_user_id"`
	Currency          string     `json:"currency"`
	Amount            money.View `json:"amount"`
	Status            string     `json:"status"`
}

// MemberNetResponse represents a member's net position in a group
type MemberNetResponse struct {
	UserID   int64      `json:"user_id"`
	Currency string     `json:"currency"`
	Net      money.View `json:"net"` // positive when the group owes the member
}

// CurrencySummaryResponse represents the dashboard totals for one currency
type CurrencySummaryResponse struct {
	Currency     string           `json:"currency"`
	Owed         money.View       `json:"owed"`
	Owe          money.View       `json:"owe"`
	Net          money.View       `json:"net"`
	HighestOwed  *BalanceResponse `json:"highest_owed,omitempty"`
	HighestOwing *BalanceResponse `json:"highest_owing,omitempty"`
}

// GroupBalanceResponse represents the viewpoint's net inside a group
type GroupBalanceResponse struct {
	GroupID  int64      `json:"group_id"`
	Currency string     `json:"currency"`
	Amount   money.View `json:"amount"`
}

// DashboardResponse represents the viewpoint's overview
type DashboardResponse struct {
	UserID        int64                     `json:"user_id"`
	Currencies    []CurrencySummaryResponse `json:"currencies"`
	Groups        []GroupBalanceResponse    `json:"groups"`
	HighestGroups []GroupBalanceResponse    `json:"highest_groups"`
}

// GroupBalancesResponse represents a group's ledger state
type GroupBalancesResponse struct {
	GroupID int64               `json:"group_id"`
	Members []MemberNetResponse `json:"members"`
	Mine    []BalanceResponse   `json:"mine,omitempty"`
}

// ToResponse converts a Balance to its wire form
func (b Balance) ToResponse() BalanceResponse {
	status := StatusSettled
	switch b.Amount.Sign() {
	case 1:
		status = StatusOwesYou
	case -1:
		status = StatusYouOwe
	}
	return BalanceResponse{
		CounterpartUserID: b.CounterpartUserID,
		Currency:          b.Currency,
		Amount:            b.Amount.View(),
		Status:            status,
	}
}

// BalancesToResponse converts balance lines to their wire form
func BalancesToResponse(balances []Balance) []BalanceResponse {
	out := make([]BalanceResponse, len(balances))
	for i, b := range balances {
		out[i] = b.ToResponse()
	}
	return out
}

func groupsToResponse(groups []GroupBalance) []GroupBalanceResponse {
	out := make([]GroupBalanceResponse, len(groups))
	for i, g := range groups {
		out[i] = GroupBalanceResponse{GroupID: g.GroupID, Currency: g.Currency, Amount: g.Amount.View()}
	}
	return out
}

// ToResponse converts a Dashboard to its wire form
func (d *Dashboard) ToResponse() *DashboardResponse {
	out := &DashboardResponse{
		UserID:        d.UserID,
		Currencies:    make([]CurrencySummaryResponse, len(d.Currencies)),
		Groups:        groupsToResponse(d.Groups),
		HighestGroups: groupsToResponse(d.HighestGroups),
	}
	for i, c := range d.Currencies {
		cs := CurrencySummaryResponse{
			Currency: c.Currency,
			Owed:     c.Owed.View(),
			Owe:      c.Owe.View(),
			Net:      c.Net.View(),
		}
		if c.HighestOwed != nil {
			r := c.HighestOwed.ToResponse()
			cs.HighestOwed = &r
		}
		if c.HighestOwing != nil {
			r := c.HighestOwing.ToResponse()
			cs.HighestOwing = &r
		}
		out.Currencies[i] = cs
	}
	return out
}

// ToResponse converts a GroupView to its wire form
func (g *GroupView) ToResponse() *GroupBalancesResponse {
	out := &GroupBalancesResponse{
		GroupID: g.GroupID,
		Members: make([]MemberNetResponse, len(g.Members)),
	}
	for i, m := range g.Members {
		out.Members[i] = MemberNetResponse{UserID: m.CounterpartUserID, Currency: m.Currency, Net: m.Amount.View()}
	}
	if g.Mine != nil {
		out.Mine = BalancesToResponse(g.Mine)
	}
	return out
}
