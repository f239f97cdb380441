// Package signature implements a Resolver that binds calls to overloads by
// comparing arity, receiver type and argument types.
package signature

import (
	"strings"

	"github.com/spetr/unusedmember/pkg/provider"
	"github.com/spetr/unusedmember/pkg/types"
)

// Match quality for one argument or receiver.
const (
	mismatch = -1
	loose    = 1
	exact    = 2
)

// integerWidening lists the types an integer literal can be converted to
// when the expected type is known.
var integerWidening = map[string]bool{
	"Long":  true,
	"Short": true,
	"Byte":  true,
}

// Resolver binds a call site to the single overload that fits it best.
type Resolver struct{}

// New creates a new signature resolver.
func New() *Resolver {
	return &Resolver{}
}

// Name returns the resolver name.
func (r *Resolver) Name() string {
	return "signature"
}

// Resolve scores every overload against the call site. It succeeds only
// when exactly one overload has the best score.
func (r *Resolver) Resolve(site types.CallSite, overloads []types.Overload) (types.DeclID, bool) {
	best := mismatch
	winner := types.NoDecl
	tied := false

	for _, o := range overloads {
		score := r.score(site, o)
		switch {
		case score == mismatch:
		case score > best:
			best, winner, tied = score, o.ID, false
		case score == best:
			tied = true
		}
	}

	if winner == types.NoDecl || tied {
		return types.NoDecl, false
	}
	return winner, true
}

func (r *Resolver) score(site types.CallSite, o types.Overload) int {
	total := 0

	if site.Receiver != "" && o.Receiver != "" {
		s := compatible(o.Receiver, site.Receiver)
		if s == mismatch {
			return mismatch
		}
		total += s
	}

	// Callable references carry no arguments.
	if site.Callable {
		return total
	}

	n := len(site.ArgTypes)
	if n < o.Required || (n > len(o.ParamTypes) && !o.Vararg) {
		return mismatch
	}

	for i, arg := range site.ArgTypes {
		if arg == "" {
			continue
		}
		param := paramAt(o, i)
		if param == "" {
			continue
		}
		s := compatible(param, arg)
		if s == mismatch {
			return mismatch
		}
		total += s
	}
	return total
}

// paramAt returns the parameter type receiving argument i.
func paramAt(o types.Overload, i int) string {
	if i < len(o.ParamTypes) {
		return o.ParamTypes[i]
	}
	if o.Vararg && len(o.ParamTypes) > 0 {
		return o.ParamTypes[len(o.ParamTypes)-1]
	}
	return ""
}

// compatible scores passing a value of type arg where param is expected.
func compatible(param, arg string) int {
	param, arg = normalize(param), normalize(arg)
	nonNullParam := strings.TrimSuffix(param, "?")

	switch {
	case param == arg:
		return exact
	case nonNullParam == arg:
		return loose
	case arg == "Nothing?" && strings.HasSuffix(param, "?"):
		return loose
	case nonNullParam == "Any" || isTypeParameter(nonNullParam):
		return loose
	case arg == "Int" && integerWidening[nonNullParam]:
		return loose
	case genericBase(nonNullParam) != "" && genericBase(nonNullParam) == genericBase(arg):
		return loose
	}
	return mismatch
}

func normalize(t string) string {
	t = strings.Join(strings.Fields(t), "")
	return strings.ReplaceAll(t, "kotlin.", "")
}

// isTypeParameter reports whether t looks like a type parameter (T, K, V).
func isTypeParameter(t string) bool {
	return len(t) == 1 && t[0] >= 'A' && t[0] <= 'Z'
}

// genericBase returns List for List<Int>.
func genericBase(t string) string {
	if i := strings.IndexByte(t, '<'); i > 0 {
		return t[:i]
	}
	return t
}

// Ensure Resolver implements the Resolver interface
var _ provider.Resolver = (*Resolver)(nil)
