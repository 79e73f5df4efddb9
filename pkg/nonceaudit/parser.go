package nonceaudit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/mahdiidarabi/ntsig/pkg/dlsig"
)

// SignatureParser defines the interface for parsing samples from various sources.
type SignatureParser interface {
	// ParseSignatures parses samples from a source and returns them.
	ParseSignatures(source string) ([]*Sample, error)
}

// JSONParser parses samples from JSON files.
type JSONParser struct {
	MessageField string       // Field name for message (default: "message")
	RField       string       // Field name for r (default: "r")
	SField       string       // Field name for s (default: "s")
	HField       string       // Field name for the hash (default: "h")
	Hasher       dlsig.Hasher // Digest applied to messages (default: SHA-256)
}

// ParseSignatures parses samples from a JSON file.
//
// Expected format:
//
//	[
//	  {"message": "...", "r": "...", "s": "..."},
//	  {"h": "0x...", "r": "0x...", "s": "0x..."}
//	]
//
// A file holding one JSON object per line, as written by "ntsig sign", is
// accepted as well.
func (p *JSONParser) ParseSignatures(jsonFile string) ([]*Sample, error) {
	file, err := os.Open(jsonFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer file.Close()

	items, err := decodeItems(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	messageField := orDefault(p.MessageField, "message")
	rField := orDefault(p.RField, "r")
	sField := orDefault(p.SField, "s")
	hField := orDefault(p.HField, "h")
	hasher := p.Hasher
	if hasher == nil {
		hasher = dlsig.SHA256
	}

	samples := make([]*Sample, 0, len(items))
	for n, item := range items {
		sample := &Sample{}

		if hVal, ok := item[hField]; ok {
			h, err := parseBigInt(hVal)
			if err != nil {
				return nil, fmt.Errorf("record %d: failed to parse h: %w", n, err)
			}
			sample.H = h
		} else if msgVal, ok := item[messageField]; ok {
			message, ok := msgVal.(string)
			if !ok {
				return nil, fmt.Errorf("record %d: message field must be a string", n)
			}
			sample.H = hasher.Int([]byte(message))
		} else {
			return nil, fmt.Errorf("record %d: missing message or h field", n)
		}

		rVal, ok := item[rField]
		if !ok {
			return nil, fmt.Errorf("record %d: missing r field", n)
		}
		if sample.R, err = parseBigInt(rVal); err != nil {
			return nil, fmt.Errorf("record %d: failed to parse r: %w", n, err)
		}

		sVal, ok := item[sField]
		if !ok {
			return nil, fmt.Errorf("record %d: missing s field", n)
		}
		if sample.S, err = parseBigInt(sVal); err != nil {
			return nil, fmt.Errorf("record %d: failed to parse s: %w", n, err)
		}

		samples = append(samples, sample)
	}

	return samples, nil
}

// decodeItems reads either a JSON array of objects or a stream of objects.
func decodeItems(r io.Reader) ([]map[string]interface{}, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber() // Preserve large numbers as json.Number instead of float64

	tok, err := decoder.Token()
	if err != nil {
		return nil, err
	}

	var items []map[string]interface{}
	switch tok {
	case json.Delim('['):
		for decoder.More() {
			var item map[string]interface{}
			if err := decoder.Decode(&item); err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if _, err := decoder.Token(); err != nil {
			return nil, err
		}
	case json.Delim('{'):
		// Token consumed the opening brace of the first object, so decode
		// its members by hand and then continue with whole objects.
		item, err := decodeObjectBody(decoder)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		for decoder.More() {
			var next map[string]interface{}
			if err := decoder.Decode(&next); err != nil {
				return nil, err
			}
			items = append(items, next)
		}
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
	return items, nil
}

func decodeObjectBody(decoder *json.Decoder) (map[string]interface{}, error) {
	item := make(map[string]interface{})
	for decoder.More() {
		tok, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var val interface{}
		if err := decoder.Decode(&val); err != nil {
			return nil, err
		}
		item[key] = val
	}
	if _, err := decoder.Token(); err != nil {
		return nil, err
	}
	return item, nil
}

// CSVParser parses samples from CSV files.
type CSVParser struct {
	MessageCol string       // Column name for message (default: "message")
	RCol       string       // Column name for r (default: "r")
	SCol       string       // Column name for s (default: "s")
	HCol       string       // Column name for the hash (default: "h")
	Hasher     dlsig.Hasher // Digest applied to messages (default: SHA-256)
}

// ParseSignatures parses samples from a CSV file.
func (p *CSVParser) ParseSignatures(csvFile string) ([]*Sample, error) {
	file, err := os.Open(csvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	messageCol := orDefault(p.MessageCol, "message")
	rCol := orDefault(p.RCol, "r")
	sCol := orDefault(p.SCol, "s")
	hCol := orDefault(p.HCol, "h")
	hasher := p.Hasher
	if hasher == nil {
		hasher = dlsig.SHA256
	}

	messageIdx, rIdx, sIdx, hIdx := -1, -1, -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case messageCol:
			messageIdx = i
		case rCol:
			rIdx = i
		case sCol:
			sIdx = i
		case hCol:
			hIdx = i
		}
	}

	if rIdx == -1 || sIdx == -1 {
		return nil, fmt.Errorf("missing required columns: r or s")
	}
	if hIdx == -1 && messageIdx == -1 {
		return nil, fmt.Errorf("missing message or h column")
	}

	samples := make([]*Sample, 0)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		sample := &Sample{}
		if hIdx >= 0 && record[hIdx] != "" {
			if sample.H, err = parseBigInt(record[hIdx]); err != nil {
				return nil, fmt.Errorf("line %d: failed to parse h: %w", line, err)
			}
		} else if messageIdx >= 0 {
			sample.H = hasher.Int([]byte(record[messageIdx]))
		} else {
			return nil, fmt.Errorf("line %d: empty h and no message column", line)
		}

		if sample.R, err = parseBigInt(record[rIdx]); err != nil {
			return nil, fmt.Errorf("line %d: failed to parse r: %w", line, err)
		}
		if sample.S, err = parseBigInt(record[sIdx]); err != nil {
			return nil, fmt.Errorf("line %d: failed to parse s: %w", line, err)
		}

		samples = append(samples, sample)
	}

	return samples, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// parseBigInt parses a non-negative integer from a decimal or 0x-prefixed
// hex string, or from a JSON number.
func parseBigInt(val interface{}) (*big.Int, error) {
	var s string
	switch v := val.(type) {
	case string:
		s = strings.TrimSpace(v)
	case json.Number:
		s = string(v)
	case float64:
		s = fmt.Sprintf("%.0f", v)
	case int64:
		return big.NewInt(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", val)
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	z, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("invalid number format: %v", val)
	}
	if z.Sign() < 0 {
		return nil, fmt.Errorf("negative value: %v", val)
	}
	return z, nil
}
