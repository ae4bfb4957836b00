package pathselect

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/temirov/gitpartial/internal/failure"
)

const (
	pathSeparatorConstant           = "/"
	currentDirectoryPrefixConstant  = "./"
	recursiveSuffixConstant         = "/**"
	recursiveFileSuffixConstant     = "/**/*"
	anySegmentsConstant             = "**"
	blankPatternSubjectConstant     = "pattern"
	blankPatternMessageConstant     = "pattern must not be blank"
	malformedPatternMessageConstant = "malformed glob pattern"
)

// ErrBlankPattern indicates an empty or whitespace-only pattern.
var ErrBlankPattern = errors.New(blankPatternMessageConstant)

// ErrMalformedPattern indicates a pattern that doublestar cannot parse.
var ErrMalformedPattern = errors.New(malformedPatternMessageConstant)

// Selector answers whether repository-relative file paths fall inside a set of glob patterns.
type Selector struct {
	patterns        []string
	matchExpression []string
}

// New compiles the supplied patterns, rejecting the first malformed one.
func New(patterns []string) (*Selector, error) {
	selector := &Selector{
		patterns:        make([]string, 0, len(patterns)),
		matchExpression: make([]string, 0, len(patterns)),
	}

	for _, pattern := range patterns {
		if validationError := validatePattern(pattern); validationError != nil {
			return nil, validationError
		}
		selector.patterns = append(selector.patterns, pattern)
		selector.matchExpression = append(selector.matchExpression, normalizePattern(pattern))
	}

	return selector, nil
}

// Validate checks every pattern without building a selector.
func Validate(patterns []string) error {
	for _, pattern := range patterns {
		if validationError := validatePattern(pattern); validationError != nil {
			return validationError
		}
	}
	return nil
}

// Patterns returns the patterns in the order they were supplied.
func (selector *Selector) Patterns() []string {
	if selector == nil {
		return nil
	}
	return append([]string{}, selector.patterns...)
}

// Matches reports whether candidatePath satisfies at least one pattern.
func (selector *Selector) Matches(candidatePath string) bool {
	if selector == nil || len(selector.matchExpression) == 0 {
		return false
	}

	normalizedPath := normalizeCandidatePath(candidatePath)
	if len(normalizedPath) == 0 {
		return false
	}

	for _, expression := range selector.matchExpression {
		matched, matchError := doublestar.Match(expression, normalizedPath)
		if matchError != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// MatchesDirectory reports whether some file below directoryPath could
// satisfy a pattern. It answers for collapsed entries such as "?? docs/" in
// git status output, where the files inside the directory are not listed.
func (selector *Selector) MatchesDirectory(directoryPath string) bool {
	if selector == nil || len(selector.matchExpression) == 0 {
		return false
	}

	normalizedDirectory := strings.TrimSuffix(normalizeCandidatePath(directoryPath), pathSeparatorConstant)
	if len(normalizedDirectory) == 0 {
		return true
	}

	directorySegments := strings.Split(normalizedDirectory, pathSeparatorConstant)
	for _, expression := range selector.matchExpression {
		if matchesBelow(strings.Split(expression, pathSeparatorConstant), directorySegments) {
			return true
		}
	}
	return false
}

// matchesBelow walks directorySegments against the leading pattern segments.
// A "**" segment can absorb the rest of the directory; otherwise the pattern
// needs at least one segment left over to name something inside it.
func matchesBelow(patternSegments []string, directorySegments []string) bool {
	for segmentIndex, directorySegment := range directorySegments {
		if segmentIndex >= len(patternSegments) {
			return false
		}
		patternSegment := patternSegments[segmentIndex]
		if patternSegment == anySegmentsConstant {
			return true
		}
		if segmentIndex == len(patternSegments)-1 {
			return false
		}
		matched, matchError := doublestar.Match(patternSegment, directorySegment)
		if matchError != nil || !matched {
			return false
		}
	}
	return true
}

// Filter returns the candidate paths selected by the patterns, preserving input order.
func (selector *Selector) Filter(candidatePaths []string) []string {
	selectedPaths := make([]string, 0, len(candidatePaths))
	for _, candidatePath := range candidatePaths {
		if selector.Matches(candidatePath) {
			selectedPaths = append(selectedPaths, candidatePath)
		}
	}
	return selectedPaths
}

func validatePattern(pattern string) error {
	if len(strings.TrimSpace(normalizePattern(pattern))) == 0 {
		return failure.New(failure.KindInvalidArgument, blankPatternSubjectConstant, ErrBlankPattern)
	}
	if !doublestar.ValidatePattern(normalizePattern(pattern)) {
		return failure.New(failure.KindPatternSyntax, pattern, ErrMalformedPattern)
	}
	return nil
}

// normalizePattern maps sparse-checkout conventions onto doublestar syntax:
// a leading slash anchors at the root (already implied), a trailing slash or
// "/**" selects files strictly below the directory and never the directory
// path itself.
func normalizePattern(pattern string) string {
	normalized := strings.TrimPrefix(pattern, pathSeparatorConstant)
	switch {
	case strings.HasSuffix(normalized, recursiveSuffixConstant):
		return strings.TrimSuffix(normalized, recursiveSuffixConstant) + recursiveFileSuffixConstant
	case len(normalized) > 1 && strings.HasSuffix(normalized, pathSeparatorConstant):
		return strings.TrimSuffix(normalized, pathSeparatorConstant) + recursiveFileSuffixConstant
	default:
		return normalized
	}
}

func normalizeCandidatePath(candidatePath string) string {
	normalized := filepath.ToSlash(candidatePath)
	for strings.HasPrefix(normalized, currentDirectoryPrefixConstant) {
		normalized = strings.TrimPrefix(normalized, currentDirectoryPrefixConstant)
	}
	return strings.TrimPrefix(normalized, pathSeparatorConstant)
}
