package schema

// OperatorID identifies an operator account.
type OperatorID string

// SessionID identifies a console session.
type SessionID string

// ThemeName identifies a UI theme.
type ThemeName string

// TimeStyle is the visual emphasis of the match clock.
type TimeStyle string

// Variant names a console layout.
type Variant string

// TemplateID identifies an operator or display template.
type TemplateID string

const (
	// TimeRegular is the default clock emphasis.
	TimeRegular TimeStyle = "regular"
	// TimeCritical marks the final seconds of a period.
	TimeCritical TimeStyle = "critical"
)

const (
	// VariantPanel is the compact operator panel.
	VariantPanel Variant = "panel"
	// VariantDashboard is the multi-tab touch dashboard.
	VariantDashboard Variant = "dashboard"
)
