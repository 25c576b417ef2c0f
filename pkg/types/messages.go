// Package types is the JSON protocol spoken over the auction websocket.
package types

// Client -> Server
//
//	{"type": "joinAsOperator"}
//	{"type": "joinAsTeam", "teamId": 3}
//	{"type": "placeBid", "teamId": 3}
type ClientMessage struct {
	Type   string `json:"type"`
	TeamID int    `json:"teamId,omitempty"`
}

const (
	JoinAsOperator = "joinAsOperator"
	JoinAsTeam     = "joinAsTeam"
	JoinAsObserver = "joinAsObserver"
	PlaceBid       = "placeBid"
	Sell           = "sell"
	Skip           = "skip"
	ResetBid       = "resetBid"
	Undo           = "undo"
	Reset          = "reset"
)

// Server -> Client. Payload depends on Type.
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

const (
	EvtUpdate           = "update"
	EvtJoined           = "joined"
	EvtBidPlaced        = "bidPlaced"
	EvtPlayerSold       = "playerSold"
	EvtPlayerSkipped    = "playerSkipped"
	EvtBidReset         = "bidReset"
	EvtUndoCompleted    = "undoCompleted"
	EvtSetSummary       = "setSummary"
	EvtReAuctionStart   = "reAuctionStart"
	EvtAuctionComplete  = "auctionComplete"
	EvtConnectionStatus = "connectionStatus"
	EvtAuctionReset     = "auctionReset"
	EvtForceDisconnect  = "forceDisconnect"
	EvtError            = "error"
)

// Error codes carried by EvtError.
const (
	CodeBadRequest    = "bad_request"
	CodeUnauthorized  = "unauthorized"
	CodeRejected      = "rejected"
	CodeNothingToUndo = "nothing_to_undo"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Joined struct {
	Role string `json:"role"`
	Team int    `json:"team,omitempty"`
}

type ForceDisconnect struct {
	Reason string `json:"reason"`
}

type BidPlaced struct {
	Team     int    `json:"team"`
	TeamName string `json:"teamName"`
	Item     Item   `json:"item"`
	Amount   int64  `json:"amount"`
	NextBid  int64  `json:"nextBid"`
}

type PlayerSold struct {
	Team     int    `json:"team"`
	TeamName string `json:"teamName"`
	Item     Item   `json:"item"`
	Price    int64  `json:"price"`
}

type PlayerSkipped struct {
	Item Item `json:"item"`
}

type BidReset struct {
	Item Item `json:"item"`
}

type UndoCompleted struct {
	Action string `json:"action"`
	Item   *Item  `json:"item,omitempty"`
	Team   int    `json:"team,omitempty"`
	Amount int64  `json:"amount,omitempty"`
}

type SetSummary struct {
	Set    int    `json:"set"`
	Items  []Item `json:"items"`
	Sold   int    `json:"sold"`
	Unsold int    `json:"unsold"`
	Spent  int64  `json:"spent"`
}

type ReAuctionStart struct {
	Count int `json:"count"`
}

type AuctionComplete struct {
	Winner    Standing   `json:"winner"`
	Standings []Standing `json:"standings"`
}
