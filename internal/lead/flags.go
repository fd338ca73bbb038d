package lead

import "sort"

// Flag is a qualitative marker on a lead.
type Flag string

const (
	FlagMissingTechData Flag = "MISSING_TECH_DATA"
	FlagNoVendorForZone Flag = "NO_VENDOR_FOR_ZONE"
	FlagCRMSyncFailed   Flag = "CRM_SYNC_FAILED"
)

// FlagSet is a set of flags with no ordering semantics.
type FlagSet map[Flag]struct{}

func (fs FlagSet) add(f Flag)    { fs[f] = struct{}{} }
func (fs FlagSet) remove(f Flag) { delete(fs, f) }

func (fs FlagSet) has(f Flag) bool {
	_, ok := fs[f]
	return ok
}

// sorted returns the flags in lexical order for stable output.
func (fs FlagSet) sorted() []Flag {
	out := make([]Flag, 0, len(fs))
	for f := range fs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
