package render

import "go.uber.org/zap"

// Category classifies a warning.
type Category string

// UserWarning flags usage that works but may not do what the caller meant.
const UserWarning Category = "UserWarning"

// Warning is a non-fatal diagnostic recorded while building a figure.
type Warning struct {
	Category Category
	Message  string
}

func (w Warning) String() string {
	return string(w.Category) + ": " + w.Message
}

// Warn records w on the figure and logs it.
func (f *Figure) Warn(w Warning) {
	f.warnings = append(f.warnings, w)
	f.log.Warn(w.Message, zap.String("category", string(w.Category)))
}

// Warnings returns the warnings recorded so far.
func (f *Figure) Warnings() []Warning {
	return append([]Warning(nil), f.warnings...)
}
