package engine

// Action tags written to the log's action column. Tags that name a subject
// are prefixes; the item or bid description follows directly.
const (
	actionInitialSetup       = "INITIAL_SETUP"
	actionSelectItem         = "SELECT_ITEM: "
	actionPassItemAuto       = "PASS_ITEM_AUTO: "
	actionBid                = "BID: "
	actionUndoBid            = "UNDO_BID: "
	actionSold               = "SOLD: "
	actionPassItem           = "PASS_ITEM: "
	actionSetBidRules        = "SET_BID_RULES"
	actionLoadHistory        = "LOAD_HISTORY"
	actionSessionEnd         = "SESSION_END"
	actionSessionEndAutoPass = "SESSION_END_AUTO_PASS: "
)
