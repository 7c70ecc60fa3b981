// Package calculator provides the calculate capability: arithmetic over
// decimal numbers with + - * / and parentheses. Expressions are parsed with
// go/parser and evaluated by walking the syntax tree.
package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"regexp"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/funcall/pkg/tools/registry"
)

// maxExpressionLen bounds the accepted input.
const maxExpressionLen = 256

var (
	allowed = regexp.MustCompile(`^[0-9+\-*/.() ]+$`)

	parametersJSON = json.RawMessage(`{"type":"object","properties":{"expression":{"type":"string","description":"Arithmetic expression, e.g. 2+2, (10-4)*5, 7/2"}},"required":["expression"]}`)

	// ErrDivisionByZero is returned for x/0.
	ErrDivisionByZero = errors.New("division by zero")
)

// Provider serves the calculate capability.
type Provider struct{}

var _ registry.Provider = Provider{}

// Name returns the provider identifier.
func (Provider) Name() string { return "calculator" }

// Capabilities returns the calculate descriptor.
func (Provider) Capabilities() []registry.Descriptor {
	return []registry.Descriptor{{
		Name:        "calculate",
		Description: "Evaluates an arithmetic expression using numbers, + - * / and parentheses.",
		Parameters:  parametersJSON,
		Handler: registry.Typed(func(_ context.Context, args calcArgs) (any, error) {
			v, err := Evaluate(args.Expression)
			if err != nil {
				return nil, err
			}
			return args.Expression + " = " + strconv.FormatFloat(v, 'g', -1, 64), nil
		}),
	}}
}

// Collectors returns nil.
func (Provider) Collectors() []prometheus.Collector { return nil }

// Close is a no-op.
func (Provider) Close() error { return nil }

type calcArgs struct {
	Expression string `json:"expression"`
}

func (a *calcArgs) Validate() error {
	if err := registry.Required("expression", a.Expression); err != nil {
		return err
	}
	if len(a.Expression) > maxExpressionLen {
		return &registry.ArgumentError{Field: "expression", Reason: fmt.Sprintf("longer than %d characters", maxExpressionLen)}
	}
	if !allowed.MatchString(a.Expression) {
		return &registry.ArgumentError{Field: "expression", Reason: "only digits, + - * / . ( ) and spaces are allowed"}
	}
	return nil
}

// Evaluate computes the value of expr.
func Evaluate(expr string) (float64, error) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return 0, fmt.Errorf("cannot parse expression %q: %w", expr, err)
	}
	v, err := eval(node)
	if err != nil {
		return 0, fmt.Errorf("cannot evaluate expression %q: %w", expr, err)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("cannot evaluate expression %q: result out of range", expr)
	}
	return v, nil
}

func eval(n ast.Expr) (float64, error) {
	switch n := n.(type) {
	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return 0, fmt.Errorf("unsupported literal %s", n.Value)
		}
		return strconv.ParseFloat(n.Value, 64)

	case *ast.ParenExpr:
		return eval(n.X)

	case *ast.UnaryExpr:
		x, err := eval(n.X)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.ADD:
			return x, nil
		case token.SUB:
			return -x, nil
		}
		return 0, fmt.Errorf("unsupported operator %s", n.Op)

	case *ast.BinaryExpr:
		x, err := eval(n.X)
		if err != nil {
			return 0, err
		}
		y, err := eval(n.Y)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.ADD:
			return x + y, nil
		case token.SUB:
			return x - y, nil
		case token.MUL:
			return x * y, nil
		case token.QUO:
			if y == 0 {
				return 0, ErrDivisionByZero
			}
			return x / y, nil
		}
		return 0, fmt.Errorf("unsupported operator %s", n.Op)
	}
	return 0, fmt.Errorf("unsupported expression %T", n)
}
