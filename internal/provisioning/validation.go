package provisioning

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/imamik/pvecfg/internal/resource"
)

// ValidationError represents a pre-flight validation error or warning.
type ValidationError struct {
	Field    string // Resource or attribute that failed validation
	Message  string // Human-readable error message
	Severity string // "error" or "warning"
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ve.Severity, ve.Field, ve.Message)
}

// IsError returns true if this is an error (not a warning).
func (ve ValidationError) IsError() bool {
	return ve.Severity == "error"
}

// ValidationPhase checks the declared resources before anything is probed.
type ValidationPhase struct {
	desired []resource.Descriptor
}

// NewValidationPhase creates a validation phase over desired.
func NewValidationPhase(desired []resource.Descriptor) *ValidationPhase {
	return &ValidationPhase{desired: desired}
}

// Name implements the Phase interface.
func (vp *ValidationPhase) Name() string {
	return "validation"
}

// Run implements the Phase interface. Warnings are logged; errors fail the pass.
func (vp *ValidationPhase) Run(ctx *Context) error {
	var errs []string
	for _, ve := range Validate(vp.desired) {
		if ve.IsError() {
			errs = append(errs, ve.Error())
			continue
		}
		ctx.Observer.Printf("[validation] WARNING: %s: %s", ve.Field, ve.Message)
	}

	if len(errs) > 0 {
		return fmt.Errorf("pre-flight validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Validate runs the pre-flight checks over desired.
func Validate(desired []resource.Descriptor) []ValidationError {
	var errs []ValidationError

	members := 0
	votes := 0
	var haGroups []resource.Descriptor
	var cluster *resource.Descriptor

	for i, d := range desired {
		if err := d.Validate(); err != nil {
			errs = append(errs, ValidationError{Field: d.Key().String(), Message: err.Error(), Severity: "error"})
			continue
		}

		switch d.Kind {
		case resource.KindClusterCreate, resource.KindClusterJoin:
			if d.Kind == resource.KindClusterCreate {
				if cluster != nil {
					errs = append(errs, ValidationError{
						Field:    d.Key().String(),
						Message:  fmt.Sprintf("only one cluster can be created, %s is already declared", cluster.Key()),
						Severity: "error",
					})
				}
				cluster = &desired[i]
			}
			members++
			v, err := nodeVotes(d)
			if err != nil {
				errs = append(errs, ValidationError{Field: d.Key().String() + ".votes", Message: err.Error(), Severity: "error"})
				continue
			}
			votes += v
		case resource.KindHAGroup:
			haGroups = append(haGroups, d)
		}
	}

	if cluster == nil && len(desired) > 0 {
		errs = append(errs, ValidationError{
			Field:    string(resource.KindClusterCreate),
			Message:  "no cluster is declared; resources are applied to whatever cluster the hosts already belong to",
			Severity: "warning",
		})
	}

	if members > 0 && members < 3 {
		for _, g := range haGroups {
			errs = append(errs, ValidationError{
				Field:    g.Key().String(),
				Message:  fmt.Sprintf("HA needs at least 3 voting nodes to keep quorum, %d declared", members),
				Severity: "warning",
			})
		}
	}

	if members >= 2 && votes%2 == 0 {
		errs = append(errs, ValidationError{
			Field:    "cluster",
			Message:  fmt.Sprintf("%d votes in total; an even split loses quorum, consider a QDevice", votes),
			Severity: "warning",
		})
	}

	return errs
}

// nodeVotes returns the votes attribute of a membership, defaulting to 1.
func nodeVotes(d resource.Descriptor) (int, error) {
	raw := d.Attr("votes")
	if raw == "" {
		return 1, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid vote count %q", raw)
	}
	return v, nil
}
