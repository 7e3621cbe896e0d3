package constants

// Currencies lists the ISO 4217 codes offered by the receipt forms.
var Currencies = []string{"USD", "EUR", "GBP", "INR", "CHF", "JPY", "AUD", "CAD"}

// DefaultCurrency is used by the CLI when no currency flag is given.
const DefaultCurrency = "EUR"
