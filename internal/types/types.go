package types

// CorrelationRefs carries optional identifiers linking an award to the
// external event that produced it. Transaction hashes are opaque,
// already-verified facts here; this core never talks to a chain.
type CorrelationRefs struct {
	TxHash     string
	VaultID    string
	PositionID string
}

// BridgeDirection names the two supported bridge directions.
type BridgeDirection string

const (
	BridgeXRPLToFlare BridgeDirection = "xrpl_to_flare"
	BridgeFlareToXRPL BridgeDirection = "flare_to_xrpl"
)
