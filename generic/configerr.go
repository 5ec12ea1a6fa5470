package generic

import (
	"strings"
)

type ConfigErr struct {
	errs []string
}

func (ce *ConfigErr) Add(s string) {
	ce.errs = append(ce.errs, s)
}

func (ce *ConfigErr) Error() string {
	return "config err: " + strings.Join(ce.errs, ",")
}

func (ce *ConfigErr) IsError() bool {
	return len(ce.errs) > 0
}

// Merge adds the messages of another ConfigErr, prefixed with the given section name
func (ce *ConfigErr) Merge(section string, err error) {
	if err == nil {
		return
	}
	if other, ok := err.(*ConfigErr); ok {
		for _, e := range other.errs {
			ce.Add(section + ": " + e)
		}
		return
	}
	ce.Add(section + ": " + err.Error())
}

func NewConfigErr() ConfigErr {
	return ConfigErr{
		errs: []string{},
	}
}
