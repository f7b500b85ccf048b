package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/zatekoja/dentalanalytics/pkg/errors"
)

const sampleHeader = " Year ;Delivery_System;Provider_Type;Age_Group;Rendering_NPI;Provider_Legal_Name;" +
	"ADV_USER_CNT;adv_user_annotation_code;adv_svc_cnt;adv_svc_annotation_code;" +
	"prev_user_cnt;prev_user_annotation_code;prev_svc_cnt;prev_svc_annotation_code;" +
	"txmt_user_cnt;txmt_user_ annotation_code;txmt_svc_cnt;txmt_svc_annotation_code;" +
	"exam_user_cnt;exam_user_annotation_code;exam_svc_cnt;exam_svc_annotation_code"

func TestCSVReader_Read(t *testing.T) {
	input := sampleHeader + "\n" +
		"2018;FFS;Dentist;AGE 0-20;1234567890; SMILE DENTAL ;100;;500;;80;;200;;40;*;150;;50;;50\n" +
		";;;;;;;;;;;;;;;;;;;;;\n" +
		"2018;GMC;Hygienist;AGE 21+;1234567891;BRIGHT TEETH;;;;;;;;;;;;;;;;\n"

	records, err := NewCSVReader(';').(*CSVReader).Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "2018", first.Year)
	assert.Equal(t, "FFS", first.DeliverySystem)
	assert.Equal(t, " SMILE DENTAL ", first.ProviderLegalName, "raw layer keeps cells untouched")
	assert.Equal(t, "100", first.Counts.AdvUsers)
	assert.Equal(t, "500", first.Counts.AdvServices)
	assert.Equal(t, "*", first.Annotations.TxmtUsers)
	assert.Equal(t, "50", first.Counts.ExamServices)
	assert.Equal(t, "", first.Annotations.ExamServices)

	second := records[1]
	assert.Equal(t, "GMC", second.DeliverySystem)
	assert.Equal(t, "", second.Counts.AdvUsers)
}

func TestCSVReader_StripsBOM(t *testing.T) {
	input := "\ufeff" + sampleHeader + "\n2019;FFS;Dentist;AGE 0-20;1;A;1;;2;;0;;0;;0;;0;;0;;0;\n"

	records, err := NewCSVReader(';').(*CSVReader).Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2019", records[0].Year)
}

func TestCSVReader_MissingColumn(t *testing.T) {
	input := "year;delivery_system\n2018;FFS\n"

	_, err := NewCSVReader(';').(*CSVReader).Read(context.Background(), strings.NewReader(input))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeParse))
	assert.Contains(t, err.Error(), "provider_type")
}

func TestCSVReader_EmptyFile(t *testing.T) {
	_, err := NewCSVReader(';').(*CSVReader).Read(context.Background(), strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeParse))
}

func TestCSVReader_ReadRecordsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw_dental.csv")
	content := strings.ReplaceAll(sampleHeader, ";", ",") + "\n2018,PHP,Dentist,AGE 21+,9,CLINIC,5,,10,,1,,2,,1,,3,,1,,4,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	records, err := NewCSVReader(',').ReadRecords(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "PHP", records[0].DeliverySystem)
	assert.Equal(t, "4", records[0].Counts.ExamServices)
}

func TestCSVReader_MissingFile(t *testing.T) {
	_, err := NewCSVReader(';').ReadRecords(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestNormalizeHeader(t *testing.T) {
	index := NormalizeHeader([]string{" YEAR", "txmt_user_ annotation_code ", "year"})
	assert.Equal(t, 0, index["year"])
	assert.Equal(t, 1, index["txmt_user_annotation_code"])
	assert.Len(t, index, 2)
}
