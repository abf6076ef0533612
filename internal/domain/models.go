package domain

// CashWatchEntry is one user's subscription to one MapleLegends account's
// vote cash balance. The account ID is the webpy session token used to read
// the account page; username and last cash are refreshed on every successful
// fetch.
type CashWatchEntry struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	LastCash   int    `json:"last_cash"`
	UpdateTime string `json:"update_time,omitempty"` // "HH:MM", UTC
}

// Character holds the public character data returned by the MapleLegends API.
type Character struct {
	Name   string `json:"name"`
	Level  int    `json:"level"`
	Gender string `json:"gender"`
	Job    string `json:"job"`
	EXP    string `json:"exp"`
	Guild  string `json:"guild"`
	Quests int    `json:"quests"`
	Cards  int    `json:"cards"`
	Donor  bool   `json:"donor"`
	Fame   int    `json:"fame"`
}
