package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"product-recommender/backend/internal/catalog"
)

const defaultExplanation = "No explanation provided."

// ErrParse is returned when the model reply cannot be decoded.
var ErrParse = errors.New("unparseable model response")

// Suggestion is a single pick as returned by the model, before it is matched against the catalog.
type Suggestion struct {
	ProductID       string
	Explanation     *string
	ConfidenceScore int
}

// Parsed is the decoded model reply. Skipped counts entries that were not JSON objects.
type Parsed struct {
	Recommendations []Suggestion
	Skipped         int
}

// UnmarshalJSON decodes each recommendation entry on its own so one malformed entry does not
// discard the rest of the reply.
func (p *Parsed) UnmarshalJSON(data []byte) error {
	var raw struct {
		Recommendations []json.RawMessage `json:"recommendations"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Parsed{Recommendations: make([]Suggestion, 0, len(raw.Recommendations))}
	for _, entry := range raw.Recommendations {
		var suggestion Suggestion
		if err := json.Unmarshal(entry, &suggestion); err != nil {
			p.Skipped++
			continue
		}
		p.Recommendations = append(p.Recommendations, suggestion)
	}
	return nil
}

// UnmarshalJSON tolerates numeric ids and scores sent as floats or strings.
func (s *Suggestion) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProductID       any `json:"product_id"`
		Explanation     any `json:"explanation"`
		ConfidenceScore any `json:"confidence_score"`
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return err
	}

	*s = Suggestion{ProductID: scalarString(raw.ProductID)}
	if raw.Explanation != nil {
		explanation := scalarString(raw.Explanation)
		s.Explanation = &explanation
	}
	s.ConfidenceScore = coerceScore(raw.ConfidenceScore)
	return nil
}

// ParseResponse strips an optional markdown fence and decodes the model reply. On failure it returns
// an empty Parsed value together with an error wrapping ErrParse.
func ParseResponse(text string) (Parsed, error) {
	content := stripCodeFence(text)
	if !strings.HasPrefix(content, "{") {
		return Parsed{Recommendations: []Suggestion{}}, fmt.Errorf("%w: expected a JSON object", ErrParse)
	}

	var parsed Parsed
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return Parsed{Recommendations: []Suggestion{}}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if parsed.Recommendations == nil {
		parsed.Recommendations = []Suggestion{}
	}
	return parsed, nil
}

// Resolve attaches full catalog records to the parsed suggestions, keeping at most three. Ids that
// do not match any product, and ids the user has already browsed, are dropped from the result and
// returned separately.
func Resolve(parsed Parsed, products []catalog.Product, history []string) (result Result, unmatched, browsed []string) {
	seen := make(map[string]struct{}, len(history))
	for _, id := range history {
		seen[id] = struct{}{}
	}

	recs := make([]Recommendation, 0, maxRecommendations)
	for _, suggestion := range parsed.Recommendations {
		if len(recs) == maxRecommendations {
			break
		}
		product, ok := catalog.FindByID(suggestion.ProductID, products)
		if !ok {
			unmatched = append(unmatched, suggestion.ProductID)
			continue
		}
		if _, ok := seen[product.ID()]; ok {
			browsed = append(browsed, product.ID())
			continue
		}
		explanation := defaultExplanation
		if suggestion.Explanation != nil {
			explanation = *suggestion.Explanation
		}
		recs = append(recs, Recommendation{
			Product:         product,
			Explanation:     explanation,
			ConfidenceScore: suggestion.ConfidenceScore,
		})
	}
	return newResult(recs), unmatched, browsed
}

func stripCodeFence(input string) string {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// language tag, e.g. ```json
	trimmed = strings.TrimLeftFunc(trimmed, func(r rune) bool {
		return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_'
	})
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func coerceScore(value any) int {
	var number float64
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		number = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		number = f
	default:
		return 0
	}
	if math.IsNaN(number) || math.IsInf(number, 0) {
		return 0
	}
	if number > math.MaxInt32 || number < math.MinInt32 {
		return 0
	}
	return int(number)
}
