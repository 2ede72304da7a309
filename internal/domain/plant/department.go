// Package plant describes the departments of the bag plant and the fixed
// routes material may take between them.
package plant

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Department identifies a production or storage area of the plant
type Department string

const (
	DepartmentExtrusion  Department = "extrusion"
	DepartmentWeaving    Department = "weaving"
	DepartmentLamination Department = "lamination"
	DepartmentCutting    Department = "cutting"
	DepartmentPrinting   Department = "printing"
	DepartmentSewing     Department = "sewing"
	DepartmentWarehouse  Department = "warehouse"
)

// flowOrder lists departments in the order material passes through the plant
var flowOrder = []Department{
	DepartmentExtrusion,
	DepartmentWeaving,
	DepartmentLamination,
	DepartmentCutting,
	DepartmentPrinting,
	DepartmentSewing,
	DepartmentWarehouse,
}

var titles = map[Department]string{
	DepartmentExtrusion:  "Экструзия",
	DepartmentWeaving:    "Ткачество",
	DepartmentLamination: "Ламинация",
	DepartmentCutting:    "Крой",
	DepartmentPrinting:   "Печать",
	DepartmentSewing:     "Пошив",
	DepartmentWarehouse:  "Склад",
}

// transfers is the fixed adjacency table for physical transfers.
// Extrusion output reaches weaving only through the warehouse ledger.
var transfers = map[Department][]Department{
	DepartmentExtrusion:  {DepartmentWarehouse},
	DepartmentWeaving:    {DepartmentLamination, DepartmentCutting},
	DepartmentLamination: {DepartmentCutting},
	DepartmentCutting:    {DepartmentPrinting, DepartmentSewing},
	DepartmentPrinting:   {DepartmentSewing},
	DepartmentSewing:     {DepartmentWarehouse},
}

// String returns the string representation of Department
func (d Department) String() string {
	return string(d)
}

// Title returns the Russian display name
func (d Department) Title() string {
	return titles[d]
}

// IsValid returns true if the department is known
func (d Department) IsValid() bool {
	_, ok := titles[d]
	return ok
}

// Rank returns the position of the department in the plant flow, or -1
func (d Department) Rank() int {
	for i, dep := range flowOrder {
		if dep == d {
			return i
		}
	}
	return -1
}

// FlowOrder returns all departments in plant flow order
func FlowOrder() []Department {
	out := make([]Department, len(flowOrder))
	copy(out, flowOrder)
	return out
}

// CanTransfer reports whether a unit may be moved directly from one department to another
func CanTransfer(from, to Department) bool {
	for _, d := range transfers[from] {
		if d == to {
			return true
		}
	}
	return false
}

// TransferTargets returns the departments directly reachable from d
func TransferTargets(d Department) []Department {
	out := make([]Department, len(transfers[d]))
	copy(out, transfers[d])
	return out
}

// Reachable returns every department reachable from origin by one or more transfers
func Reachable(origin Department) []Department {
	seen := map[Department]bool{}
	queue := []Department{origin}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range transfers[cur] {
			if !seen[next] && next != origin {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	out := make([]Department, 0, len(seen))
	for _, d := range flowOrder {
		if seen[d] {
			out = append(out, d)
		}
	}
	return out
}

var lower = cases.Lower(language.Russian)

// ParseDepartment accepts a slug or a Russian title in any letter case
func ParseDepartment(s string) (Department, bool) {
	key := lower.String(strings.TrimSpace(s))
	for _, d := range flowOrder {
		if string(d) == key || lower.String(titles[d]) == key {
			return d, true
		}
	}
	return "", false
}
