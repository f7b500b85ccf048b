// Package ingest reads the delimited utilization export into raw records.
package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/providers"
	apperrors "github.com/zatekoja/dentalanalytics/pkg/errors"
)

// headerFixes repairs column names known to be misspelled in published extracts.
var headerFixes = map[string]string{
	"txmt_user_ annotation_code": "txmt_user_annotation_code",
}

var requiredColumns = []string{
	"year", "delivery_system", "provider_type", "age_group", "rendering_npi", "provider_legal_name",
	"adv_user_cnt", "adv_svc_cnt", "prev_user_cnt", "prev_svc_cnt",
	"txmt_user_cnt", "txmt_svc_cnt", "exam_user_cnt", "exam_svc_cnt",
}

// CSVReader implements providers.RecordSource for delimiter-separated files.
type CSVReader struct {
	comma rune
}

// NewCSVReader creates a reader splitting fields on the given delimiter.
func NewCSVReader(comma rune) providers.RecordSource {
	return &CSVReader{comma: comma}
}

// ReadRecords loads every data row of the file at path.
func (r *CSVReader) ReadRecords(ctx context.Context, path string) ([]*entities.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStageError(string(entities.StageIngest), fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	records, err := r.Read(ctx, f)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("rows", len(records)).Msg("read raw records")
	return records, nil
}

// Read parses records from an open stream. The first row is the header.
func (r *CSVReader) Read(ctx context.Context, in io.Reader) ([]*entities.RawRecord, error) {
	br := bufio.NewReader(in)
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.Comma = r.comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewParseError(string(entities.StageIngest), "file has no header row", nil)
		}
		return nil, apperrors.NewParseError(string(entities.StageIngest), "failed to read header row", err)
	}

	index := NormalizeHeader(header)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, apperrors.NewParseError(string(entities.StageIngest), fmt.Sprintf("missing column %q", col), nil)
		}
	}

	var out []*entities.RawRecord
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewParseError(string(entities.StageIngest), fmt.Sprintf("line %d", line), err)
		}
		if blank(row) {
			continue
		}
		out = append(out, toRawRecord(row, index))
	}
	return out, nil
}

// NormalizeHeader lower-cases and trims column names and returns their positions.
func NormalizeHeader(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if fixed, ok := headerFixes[name]; ok {
			name = fixed
		}
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	return index
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func toRawRecord(row []string, index map[string]int) *entities.RawRecord {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	return &entities.RawRecord{
		Categorical: entities.Categorical{
			Year:              get("year"),
			DeliverySystem:    get("delivery_system"),
			ProviderType:      get("provider_type"),
			AgeGroup:          get("age_group"),
			RenderingNPI:      get("rendering_npi"),
			ProviderLegalName: get("provider_legal_name"),
		},
		Counts: entities.ServiceCountText{
			AdvUsers:     get("adv_user_cnt"),
			AdvServices:  get("adv_svc_cnt"),
			PrevUsers:    get("prev_user_cnt"),
			PrevServices: get("prev_svc_cnt"),
			TxmtUsers:    get("txmt_user_cnt"),
			TxmtServices: get("txmt_svc_cnt"),
			ExamUsers:    get("exam_user_cnt"),
			ExamServices: get("exam_svc_cnt"),
		},
		Annotations: entities.AnnotationCodes{
			AdvUsers:     get("adv_user_annotation_code"),
			AdvServices:  get("adv_svc_annotation_code"),
			PrevUsers:    get("prev_user_annotation_code"),
			PrevServices: get("prev_svc_annotation_code"),
			TxmtUsers:    get("txmt_user_annotation_code"),
			TxmtServices: get("txmt_svc_annotation_code"),
			ExamUsers:    get("exam_user_annotation_code"),
			ExamServices: get("exam_svc_annotation_code"),
		},
	}
}
