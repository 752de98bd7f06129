// Package master resolves the instrument universe for an ingestion run from
// a securities-master source and derives the asset metadata written after
// ingestion.
package master

import "fmt"

// ConfigError reports bad or missing selection criteria. It is fatal: the
// run aborts before any I/O.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("bad ingestion selection: %s", e.Detail)
}

// Selection names which instruments an ingestion run covers: either an
// explicit instrument id list or universe-membership filters, each with an
// optional exclusion list.
type Selection struct {
	IDs              []int64
	Universes        []string
	ExcludeIDs       []int64
	ExcludeUniverses []string
}

// Validate returns a *ConfigError unless exactly one of IDs or Universes is
// non-empty.
func (s Selection) Validate() error {
	switch {
	case len(s.IDs) == 0 && len(s.Universes) == 0:
		return &ConfigError{Detail: "one or more instrument ids or universes is required"}
	case len(s.IDs) > 0 && len(s.Universes) > 0:
		return &ConfigError{Detail: "instrument ids and universes are mutually exclusive"}
	}
	return nil
}
