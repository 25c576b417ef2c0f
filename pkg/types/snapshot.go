package types

// State is the "update" payload. Operator and observers get it with Mine
// nil; a team device gets its own team in Mine. Connection identities are
// never included, only occupancy flags.
type State struct {
	Version        int         `json:"version"`
	Phase          string      `json:"phase"`
	Index          int         `json:"index"`
	Total          int         `json:"total"`
	Set            int         `json:"set"`
	SetCount       int         `json:"setCount"`
	CurrentItem    *Item       `json:"currentItem"`
	CurrentBid     int64       `json:"currentBid"`
	CurrentBidTeam int         `json:"currentBidTeam"`
	NextBid        int64       `json:"nextBid"`
	Teams          []Team      `json:"teams"`
	Items          []Item      `json:"items"`
	UnsoldCount    int         `json:"unsoldCount"`
	SoldCount      int         `json:"soldCount"`
	TotalSpent     int64       `json:"totalSpent"`
	CanUndo        bool        `json:"canUndo"`
	Connections    Connections `json:"connections"`
	Standings      []Standing  `json:"standings,omitempty"`
	You            Joined      `json:"you"`
	Mine           *Team       `json:"mine,omitempty"`
}

type Item struct {
	ID        int    `json:"id"`
	Serial    string `json:"serial"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Archetype string `json:"archetype"`
	BaseScore int    `json:"baseScore"`
	BasePrice int64  `json:"basePrice"`
	Status    string `json:"status"`
	SoldTo    int    `json:"soldTo,omitempty"`
	SoldPrice int64  `json:"soldPrice,omitempty"`
}

type Award struct {
	Item              Item  `json:"item"`
	BoughtPrice       int64 `json:"boughtPrice"`
	IndividualSynergy int   `json:"individualSynergy"`
}

type Team struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Budget    int64   `json:"budget"`
	Remaining int64   `json:"remaining"`
	Spent     int64   `json:"spent"`
	Synergy   int     `json:"synergy"`
	Roster    []Award `json:"roster"`
	Online    bool    `json:"online"`
}

// Connections is the "connectionStatus" payload.
type Connections struct {
	Operator  bool         `json:"operator"`
	Teams     map[int]bool `json:"teams"`
	Observers int          `json:"observers"`
}

type Standing struct {
	Rank       int    `json:"rank"`
	Team       int    `json:"team"`
	Name       string `json:"name"`
	Synergy    int    `json:"synergy"`
	Remaining  int64  `json:"remaining"`
	Spent      int64  `json:"spent"`
	RosterSize int    `json:"rosterSize"`
}
