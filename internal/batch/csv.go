package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/foundergraph/enricher/internal/record"
)

// ReadIdentitiesCSV reads the batch input table. Required columns: firstName,
// lastName, companyName (case-insensitive header match). Rows with no name at
// all still come back as identities so the driver can count them as skipped.
func ReadIdentitiesCSV(r io.Reader) ([]record.Identity, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := func(name string) int {
		for i, c := range header {
			if strings.EqualFold(strings.TrimSpace(c), name) {
				return i
			}
		}
		return -1
	}
	firstIdx := col("firstName")
	lastIdx := col("lastName")
	companyIdx := col("companyName")
	profileIdx := col("profileUrl")
	if profileIdx < 0 {
		profileIdx = col("linkedinUrl")
	}
	if firstIdx < 0 || lastIdx < 0 {
		return nil, fmt.Errorf("missing required columns %q and %q", "firstName", "lastName")
	}

	field := func(rec []string, idx int) string {
		if idx < 0 || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	var out []record.Identity
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		name := strings.TrimSpace(field(rec, firstIdx) + " " + field(rec, lastIdx))
		id := record.NewIdentity(name, field(rec, companyIdx))
		id.ProfileURL = field(rec, profileIdx)
		out = append(out, id)
	}
	return out, nil
}
