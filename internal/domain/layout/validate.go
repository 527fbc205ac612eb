package layout

import (
	"fmt"
	"regexp"
	"strconv"
)

// Rule identifies which compatibility rule a candidate layout violated.
type Rule string

const (
	RuleSlotRemoved      Rule = "slot-removed"
	RuleSlotMoved        Rule = "slot-moved"
	RuleSlotReordered    Rule = "slot-reordered"
	RuleSlotRenamed      Rule = "slot-renamed"
	RuleTypeIncompatible Rule = "type-incompatible"
	RuleSlotOverlap      Rule = "slot-overlap"
	RuleNotUpgradeable   Rule = "not-upgradeable"
	RuleLayoutUnknown    Rule = "layout-unknown"
)

// Rejection describes the first violated rule and the offending entry.
type Rejection struct {
	Rule   Rule
	Index  int
	Slot   string
	Label  string
	Reason string
}

// Result is Ok when Rejected is nil.
type Result struct {
	Rejected *Rejection
}

// Ok reports whether the candidate layout may replace the current one.
func (r Result) Ok() bool { return r.Rejected == nil }

// Options tune the validator.
type Options struct {
	// AllowRenames accepts a field whose label changed but whose position and type did not.
	AllowRenames bool
}

// Validate compares the layout of the deployed implementation with a candidate.
func Validate(old, candidate *StorageLayout, opts Options) Result {
	for i, o := range old.Entries {
		if i >= len(candidate.Entries) {
			return reject(RuleSlotRemoved, i, o, "field no longer present in the new layout")
		}
		n := candidate.Entries[i]
		sameLocation := o.Slot == n.Slot && o.Offset == n.Offset

		if o.Label != n.Label {
			if j := candidate.IndexOf(o.Label); j >= 0 {
				return reject(RuleSlotReordered, i, o,
					fmt.Sprintf("field moved to index %d, %q now occupies its position", j, n.Label))
			}
			compatible := sameLocation && typesCompatible(old, candidate, o.Type, n.Type, 0)
			if !compatible {
				return reject(RuleSlotRemoved, i, o, fmt.Sprintf("field replaced by %q (%s)", n.Label, candidate.TypeLabel(n)))
			}
			if !opts.AllowRenames {
				return reject(RuleSlotRenamed, i, o, fmt.Sprintf("field renamed to %q", n.Label))
			}
		}

		if !sameLocation {
			return reject(RuleSlotMoved, i, o,
				fmt.Sprintf("field moved from slot %s offset %d to slot %s offset %d", o.Slot, o.Offset, n.Slot, n.Offset))
		}

		if typesCompatible(old, candidate, o.Type, n.Type, 0) {
			continue
		}
		if o.Offset == 0 && !old.sharesSlot(i) && uintWidening(old.Types[o.Type], candidate.Types[n.Type]) {
			continue
		}
		return reject(RuleTypeIncompatible, i, o,
			fmt.Sprintf("type changed from %s to %s", old.TypeLabel(o), candidate.TypeLabel(n)))
	}

	used := old.end()
	for i := len(old.Entries); i < len(candidate.Entries); i++ {
		n := candidate.Entries[i]
		if start(n).Cmp(used) < 0 {
			return reject(RuleSlotOverlap, i, n, "appended field overlaps storage used by the current implementation")
		}
	}

	return Result{}
}

func reject(rule Rule, index int, e Entry, reason string) Result {
	return Result{Rejected: &Rejection{
		Rule:   rule,
		Index:  index,
		Slot:   e.Slot,
		Label:  e.Label,
		Reason: reason,
	}}
}

// maxTypeDepth bounds recursion through nested structs and mappings.
const maxTypeDepth = 16

func typesCompatible(old, candidate *StorageLayout, oldID, newID string, depth int) bool {
	if depth > maxTypeDepth {
		return false
	}
	if isAddressLike(oldID) && isAddressLike(newID) {
		return true
	}
	if normalizeTypeID(oldID) != normalizeTypeID(newID) {
		return false
	}

	ot, okOld := old.Types[oldID]
	nt, okNew := candidate.Types[newID]
	if !okOld || !okNew {
		// without type tables only the identifier can be compared
		return okOld == okNew
	}
	if ot.Encoding != nt.Encoding || ot.NumberOfBytes != nt.NumberOfBytes {
		return false
	}

	switch {
	case ot.Key != "" || nt.Key != "":
		return typesCompatible(old, candidate, ot.Key, nt.Key, depth+1) &&
			typesCompatible(old, candidate, ot.Value, nt.Value, depth+1)
	case ot.Base != "" || nt.Base != "":
		return typesCompatible(old, candidate, ot.Base, nt.Base, depth+1)
	case len(ot.Members) > 0 || len(nt.Members) > 0:
		if len(ot.Members) != len(nt.Members) {
			return false
		}
		for i := range ot.Members {
			om, nm := ot.Members[i], nt.Members[i]
			if om.Label != nm.Label || om.Slot != nm.Slot || om.Offset != nm.Offset {
				return false
			}
			if !typesCompatible(old, candidate, om.Type, nm.Type, depth+1) {
				return false
			}
		}
	}
	return true
}

var addressLike = regexp.MustCompile(`^t_(address|address_payable|contract\([^)]*\)\d*)$`)

func isAddressLike(id string) bool {
	return addressLike.MatchString(id)
}

var uintLabel = regexp.MustCompile(`^uint(\d+)$`)

// uintWidening accepts uintN -> uintM with M > N: values are right aligned, so the
// existing bytes decode to the same number under the wider type.
func uintWidening(old, candidate TypeDescriptor) bool {
	om := uintLabel.FindStringSubmatch(old.Label)
	nm := uintLabel.FindStringSubmatch(candidate.Label)
	if om == nil || nm == nil || old.Encoding != "inplace" || candidate.Encoding != "inplace" {
		return false
	}
	ob, _ := strconv.Atoi(om[1])
	nb, _ := strconv.Atoi(nm[1])
	return nb > ob
}
