package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/dentalanalytics/internal/infrastructure/observability"
)

// header mirrors the published extract, including its misspelled column.
var header = []string{
	"Year", "Delivery_System", "Provider_Type", "Age_Group", "Rendering_NPI", "Provider_Legal_Name",
	"ADV_User_Cnt", "ADV_Svc_Cnt", "PREV_User_Cnt", "PREV_Svc_Cnt",
	"TXMT_User_Cnt", "TXMT_Svc_Cnt", "EXAM_User_Cnt", "EXAM_Svc_Cnt",
	"ADV_User_Annotation_Code", "ADV_Svc_Annotation_Code", "PREV_User_Annotation_Code", "PREV_Svc_Annotation_Code",
	"TXMT_User_ Annotation_Code", "TXMT_Svc_Annotation_Code", "EXAM_User_Annotation_Code", "EXAM_Svc_Annotation_Code",
}

var (
	deliverySystems = []string{"FFS", "GMC", "PHP"}
	ageGroups       = []string{"AGE 0-20", "AGE 21+"}
	providerTypes   = []string{"Dentist", "FQHC", "Dental Clinic"}
)

func main() {
	out := flag.String("out", "./raw_dental.csv", "output path")
	providers := flag.Int("providers", 25, "number of synthetic providers")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	observability.InitLogger("dental-analytics-seed", "development")

	rows, err := writeSample(*out, *providers, rand.New(rand.NewSource(*seed)))
	if err != nil {
		log.Fatal().Err(err).Str("path", *out).Msg("failed to write sample data")
	}
	log.Info().Str("path", *out).Int("rows", rows).Msg("sample data written")
}

func writeSample(path string, providers int, rng *rand.Rand) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write(header); err != nil {
		return 0, err
	}

	rows := 0
	for p := 0; p < providers; p++ {
		npi := strconv.Itoa(1000000000 + p)
		name := fmt.Sprintf("SAMPLE DENTAL GROUP %02d", p+1)
		providerType := providerTypes[p%len(providerTypes)]

		// every provider works in one or two delivery systems
		systems := []string{deliverySystems[p%len(deliverySystems)]}
		if p%4 == 0 {
			systems = append(systems, deliverySystems[(p+1)%len(deliverySystems)])
		}

		for _, system := range systems {
			for _, age := range ageGroups {
				if err := w.Write(sampleRow(rng, npi, name, providerType, system, age)); err != nil {
					return rows, err
				}
				rows++
			}
		}
	}

	w.Flush()
	return rows, w.Error()
}

func sampleRow(rng *rand.Rand, npi, name, providerType, system, age string) []string {
	users := 20 + rng.Intn(800)
	prevUsers := users * (40 + rng.Intn(50)) / 100
	txmtUsers := users * (10 + rng.Intn(40)) / 100
	examUsers := users * (30 + rng.Intn(60)) / 100

	prevSvc := prevUsers * (1 + rng.Intn(3))
	txmtSvc := txmtUsers * (1 + rng.Intn(4))
	examSvc := examUsers * (1 + rng.Intn(2))
	advSvc := prevSvc + txmtSvc + examSvc + rng.Intn(users+1)

	row := []string{
		"2023", system, providerType, age, npi, name,
		strconv.Itoa(users), strconv.Itoa(advSvc), strconv.Itoa(prevUsers), strconv.Itoa(prevSvc),
		strconv.Itoa(txmtUsers), strconv.Itoa(txmtSvc), strconv.Itoa(examUsers), strconv.Itoa(examSvc),
	}
	annotations := make([]string, 8)
	// small cells are suppressed in the published data
	if users < 40 {
		for i := range annotations {
			annotations[i] = "1"
		}
	}
	return append(row, annotations...)
}
