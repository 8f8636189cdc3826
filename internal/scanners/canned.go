package scanners

import (
	_ "embed"
	"encoding/json"
	"sync"

	"shipscan/scanner-api/internal/model"
)

//go:embed canned/sample-scan.json
var sampleScan []byte

var loadCanned = sync.OnceValue(func() []model.Finding {
	var findings []model.Finding
	if err := json.Unmarshal(sampleScan, &findings); err != nil {
		panic("scanners: embedded sample scan is invalid: " + err.Error())
	}
	return findings
})

// Canned returns the fixed finding set used whenever a live scan is not run.
func Canned() []model.Finding {
	return model.CloneFindings(loadCanned())
}
