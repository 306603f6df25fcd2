package constants

// TariffPost is a time-of-day billing bucket. Conventional modality bills a
// single Total bucket; white modality bills Peak, OffPeak and Intermediate
// separately, with Total derived as their sum.
type TariffPost string

const (
	PostTotal        TariffPost = "TOTAL"
	PostPeak         TariffPost = "PEAK"
	PostOffPeak      TariffPost = "OFF_PEAK"
	PostIntermediate TariffPost = "INTERMEDIATE"
)

// WhitePosts lists the independently extracted posts for white modality, in
// extraction order.
var WhitePosts = []TariffPost{PostPeak, PostOffPeak, PostIntermediate}

// TariffFlag is the cost-adjustment surcharge tier (bandeira) billed per unit
// of consumption.
type TariffFlag string

const (
	FlagGreen     TariffFlag = "VERDE"
	FlagYellow    TariffFlag = "AMARELA"
	FlagRed       TariffFlag = "VERMELHA"
	FlagYellowRed TariffFlag = "AMARELA_VERMELHA"
)

// SupplyType is the connection phase type; it determines the minimum billable
// consumption in kWh.
type SupplyType string

const (
	SupplySinglePhase SupplyType = "MONOFASICO"
	SupplyTwoPhase    SupplyType = "BIFASICO"
	SupplyThreePhase  SupplyType = "TRIFASICO"
)

// MinimumBillableKWh returns the regulatory minimum consumption billed for the
// supply type. Unknown types fall back to the three-phase minimum.
func (s SupplyType) MinimumBillableKWh() int64 {
	switch s {
	case SupplySinglePhase:
		return 30
	case SupplyTwoPhase:
		return 50
	case SupplyThreePhase:
		return 100
	default:
		return 100
	}
}
