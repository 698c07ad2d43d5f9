package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxNameLength        = 100
	MaxLabelLength       = 50
	MaxDescriptionLength = 500
	MaxExtraFields       = 20
	MaxNodes             = 10000
	MaxRelations         = 100000

	// Regular expressions
	namePattern  = regexp.MustCompile(`^[\p{L}\p{N}_\-]+$`)
	labelPattern = regexp.MustCompile(`^[a-z][a-z0-9_\-]*$`)
	keyPattern   = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

func init() {
	validate = validator.New()
}

// NodeRequest describes a node to be added to a knowledge store.
type NodeRequest struct {
	Name        string         `json:"name" yaml:"name" validate:"required,max=100"`
	Type        string         `json:"type" yaml:"type" validate:"omitempty,max=50"`
	Severity    string         `json:"severity,omitempty" yaml:"severity,omitempty" validate:"omitempty,oneof=mild medium high"`
	Contagious  *bool          `json:"contagious,omitempty" yaml:"contagious,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty" validate:"max=500"`
	Extra       map[string]any `json:"extra,omitempty" yaml:"extra,omitempty" validate:"omitempty,max=20"`
}

// RelationRequest describes a relation to be added to a knowledge store.
type RelationRequest struct {
	Source string `json:"source" validate:"required,max=100"`
	Label  string `json:"label" validate:"required,max=50"`
	Target string `json:"target" validate:"required,max=100"`
}

// Node converts a validated request into a store node.
func (r *NodeRequest) Node() knowledge.Node {
	return knowledge.Node{
		Name: r.Name,
		Type: knowledge.NodeType(r.Type),
		Attributes: knowledge.Attributes{
			Severity:    r.Severity,
			Contagious:  r.Contagious,
			Description: r.Description,
			Extra:       r.Extra,
		},
	}
}

// ValidateNodeRequest validates a node request
func ValidateNodeRequest(req *NodeRequest) error {
	if req == nil {
		return errors.New("node request cannot be nil")
	}

	// Validate using struct tags
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	if err := ValidateName(req.Name); err != nil {
		return fmt.Errorf("Name: %w", err)
	}
	if req.Type != "" && !labelPattern.MatchString(req.Type) {
		return fmt.Errorf("Type: '%s' contains invalid characters (lowercase letters, digits, '-' and '_' allowed)", req.Type)
	}

	for key := range req.Extra {
		if err := ValidateExtraKey(key); err != nil {
			return fmt.Errorf("Extra: %w", err)
		}
	}

	return nil
}

// ValidateRelationRequest validates a relation request
func ValidateRelationRequest(req *RelationRequest) error {
	if req == nil {
		return errors.New("relation request cannot be nil")
	}

	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	if err := ValidateName(req.Source); err != nil {
		return fmt.Errorf("Source: %w", err)
	}
	if err := ValidateName(req.Target); err != nil {
		return fmt.Errorf("Target: %w", err)
	}
	if !labelPattern.MatchString(req.Label) {
		return fmt.Errorf("Label: '%s' contains invalid characters (lowercase letters, digits, '-' and '_' allowed)", req.Label)
	}

	return nil
}

// ValidateDocumentSize rejects documents too large to load.
func ValidateDocumentSize(nodes, relations int) error {
	if nodes > MaxNodes {
		return fmt.Errorf("document has %d nodes, maximum is %d", nodes, MaxNodes)
	}
	if relations > MaxRelations {
		return fmt.Errorf("document has %d relations, maximum is %d", relations, MaxRelations)
	}
	return nil
}

// ValidateDocument checks every node and relation of doc.
func ValidateDocument(doc knowledge.Document) error {
	if err := ValidateDocumentSize(len(doc.Nodes), len(doc.Relations)); err != nil {
		return err
	}
	for i, n := range doc.Nodes {
		req := NodeRequest{
			Name:        n.Name,
			Type:        string(n.Type),
			Severity:    n.Severity,
			Contagious:  n.Contagious,
			Description: n.Description,
			Extra:       n.Extra,
		}
		if err := ValidateNodeRequest(&req); err != nil {
			return fmt.Errorf("node %d (%s): %w", i, n.Name, err)
		}
	}
	for i, r := range doc.Relations {
		req := RelationRequest{Source: r.Source, Label: r.Label, Target: r.Target}
		if err := ValidateRelationRequest(&req); err != nil {
			return fmt.Errorf("relation %d: %w", i, err)
		}
	}
	return nil
}

// ValidateName validates a node name
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name '%s' exceeds maximum length of %d characters", name, MaxNameLength)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name '%s' contains invalid characters (letters, digits, '-' and '_' allowed)", name)
	}
	return nil
}

// ValidateExtraKey validates a key of a node's extension attributes
func ValidateExtraKey(key string) error {
	if key == "" {
		return errors.New("attribute key cannot be empty")
	}
	if len(key) > MaxLabelLength {
		return fmt.Errorf("attribute key '%s' exceeds maximum length of %d characters", key, MaxLabelLength)
	}
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("attribute key '%s' is invalid (must start with letter or underscore, followed by alphanumeric or underscore)", key)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
