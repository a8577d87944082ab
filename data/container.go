// Package data holds the interaction dataset currently served. A rebuild
// replaces the dataset and its lookup index in a single atomic store, so
// readers never see a half-updated state.
package data

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/polyrisk/polyrisk-api/entities"
	"github.com/polyrisk/polyrisk-api/interactions"
	"github.com/polyrisk/polyrisk-api/interfaces"
)

var _ interfaces.DataStore = (*DataContainer)(nil)

// snapshot is everything swapped together on update.
type snapshot struct {
	dataset     *interactions.Dataset
	rows        []entities.InteractionRow
	byDrug      map[string][]int
	report      *interfaces.DataQualityReport
	lastUpdated time.Time
}

// DataContainer serves the dataset with lock-free reads.
type DataContainer struct {
	current         atomic.Pointer[snapshot]
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.current.Store(&snapshot{
		rows:   []entities.InteractionRow{},
		byDrug: map[string][]int{},
	})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

func drugKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// indexRows maps each lowercased drug name to the rows it appears in.
func indexRows(rows []entities.InteractionRow) map[string][]int {
	index := make(map[string][]int)
	for i, row := range rows {
		k1, k2 := drugKey(row.Drug1), drugKey(row.Drug2)
		if k1 != "" {
			index[k1] = append(index[k1], i)
		}
		if k2 != "" && k2 != k1 {
			index[k2] = append(index[k2], i)
		}
	}
	return index
}

// UpdateData replaces the served dataset. A nil dataset clears it.
func (dc *DataContainer) UpdateData(dataset *interactions.Dataset, report *interfaces.DataQualityReport) {
	next := &snapshot{
		dataset:     dataset,
		rows:        []entities.InteractionRow{},
		report:      report,
		lastUpdated: time.Now(),
	}
	if dataset != nil && dataset.Rows != nil {
		next.rows = dataset.Rows
	}
	next.byDrug = indexRows(next.rows)
	dc.current.Store(next)
}

func (dc *DataContainer) GetDataset() *interactions.Dataset {
	return dc.current.Load().dataset
}

func (dc *DataContainer) GetRows() []entities.InteractionRow {
	return dc.current.Load().rows
}

// FindByDrug returns the rows naming the drug on either side, matched case
// insensitively. The result is in dataset order.
func (dc *DataContainer) FindByDrug(name string) []entities.InteractionRow {
	snap := dc.current.Load()
	indexes := snap.byDrug[drugKey(name)]
	rows := make([]entities.InteractionRow, 0, len(indexes))
	for _, i := range indexes {
		rows = append(rows, snap.rows[i])
	}
	return rows
}

func (dc *DataContainer) GetQualityReport() *interfaces.DataQualityReport {
	return dc.current.Load().report
}

func (dc *DataContainer) GetLastUpdated() time.Time {
	return dc.current.Load().lastUpdated
}

func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

func (dc *DataContainer) GetServerStartTime() time.Time {
	if t, ok := dc.serverStartTime.Load().(time.Time); ok {
		return t
	}
	return time.Time{}
}

// BeginUpdate returns false when another update is already running.
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
