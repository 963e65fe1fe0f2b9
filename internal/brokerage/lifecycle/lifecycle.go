// Package lifecycle derives a local order stage from the backend's
// free-form status string.
//
// This is the only place in the core permitted to interpret RawStatus.
// The mapping is table-driven, never inferred, and unknown values pass
// through verbatim so the UI can render them without misrepresenting
// state. Views pattern-match on Stage instead of re-deriving meaning
// from the raw string.
package lifecycle

import "github.com/partsdesk/partsdesk-go/internal/brokerage"

// Stage is the local finite state derived from an order's raw status.
type Stage string

const (
	StageNew              Stage = "new"
	StageOEMLookup        Stage = "oem_lookup"
	StageCollectingOffers Stage = "collecting_offers"
	StageAwaitingCustomer Stage = "awaiting_customer"
	StageConfirmed        Stage = "confirmed"
	StageInvoiced         Stage = "invoiced"
	StageUnknown          Stage = "unknown"
)

// StageInfo is the derived view of a raw status.
type StageInfo struct {
	Stage Stage  `json:"stage"`
	Label string `json:"label"`
}

// stageTable is the authoritative raw-status mapping.
var stageTable = map[string]StageInfo{
	"new":          {Stage: StageNew, Label: "New"},
	"lookup_oem":   {Stage: StageOEMLookup, Label: "OEM lookup"},
	"collect_part": {Stage: StageAwaitingCustomer, Label: "Awaiting customer"},
	"done":         {Stage: StageConfirmed, Label: "Confirmed"},
	"invoiced":     {Stage: StageInvoiced, Label: "Invoiced"},
}

// stageRank orders known stages along the pipeline. Unknown has no rank.
var stageRank = map[Stage]int{
	StageNew:              0,
	StageOEMLookup:        1,
	StageCollectingOffers: 2,
	StageAwaitingCustomer: 3,
	StageConfirmed:        4,
	StageInvoiced:         5,
}

// Map derives the stage for a raw status. Statuses outside the table map
// to StageUnknown with the raw value as label, unchanged.
func Map(rawStatus string) StageInfo {
	if info, ok := stageTable[rawStatus]; ok {
		return info
	}
	return StageInfo{Stage: StageUnknown, Label: rawStatus}
}

// atLeast reports whether stage has reached the given pipeline position.
// An unknown stage has reached nothing.
func atLeast(stage, min Stage) bool {
	r, ok := stageRank[stage]
	if !ok {
		return false
	}
	return r >= stageRank[min]
}

// Step is one entry of the order timeline checklist.
type Step string

const (
	StepRequestReceived  Step = "request_received"
	StepOEMVerified      Step = "oem_verified"
	StepOffersCollected  Step = "offers_collected"
	StepCustomerNotified Step = "customer_notified"
	StepConfirmed        Step = "confirmed"
	StepInvoiceIssued    Step = "invoice_issued"
)

// steps is the fixed checklist order for timeline display.
var steps = []struct {
	step Step
	done func(o *brokerage.Order, stage Stage) bool
}{
	// An order exists, so the request was received.
	{StepRequestReceived, func(o *brokerage.Order, stage Stage) bool { return true }},
	{StepOEMVerified, func(o *brokerage.Order, stage Stage) bool { return o.OEM != "" }},
	{StepOffersCollected, func(o *brokerage.Order, stage Stage) bool { return len(o.Offers) > 0 }},
	{StepCustomerNotified, func(o *brokerage.Order, stage Stage) bool { return atLeast(stage, StageAwaitingCustomer) }},
	{StepConfirmed, func(o *brokerage.Order, stage Stage) bool { return atLeast(stage, StageConfirmed) }},
	{StepInvoiceIssued, func(o *brokerage.Order, stage Stage) bool { return atLeast(stage, StageInvoiced) }},
}

// CompletedSteps evaluates the fixed checklist against the order. Each
// check is independent and monotonic: a later step being complete never
// forces an earlier one to be recomputed as complete.
func CompletedSteps(o *brokerage.Order) []Step {
	stage := Map(o.RawStatus).Stage
	var done []Step
	for _, s := range steps {
		if s.done(o, stage) {
			done = append(done, s.step)
		}
	}
	return done
}

// Action is a user action gated by the order stage.
type Action string

const (
	ActionStartOEMLookup Action = "start_oem_lookup"
	ActionPublishOffer   Action = "publish_offer"
	ActionConfirmOrder   Action = "confirm_order"
	ActionCreateInvoice  Action = "create_invoice"
)

// actionTable gates legal next actions per stage. Unknown stages allow
// nothing: the backend owns a status this build does not understand.
var actionTable = map[Stage][]Action{
	StageNew:              {ActionStartOEMLookup, ActionPublishOffer},
	StageOEMLookup:        {ActionPublishOffer},
	StageCollectingOffers: {ActionPublishOffer},
	StageAwaitingCustomer: {ActionPublishOffer, ActionConfirmOrder},
	StageConfirmed:        {ActionCreateInvoice},
	StageInvoiced:         {},
}

// AllowedActions returns the legal next actions for a stage.
func AllowedActions(stage Stage) []Action {
	actions, ok := actionTable[stage]
	if !ok {
		return nil
	}
	return actions
}
