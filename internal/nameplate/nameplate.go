// Package nameplate loads the CSV nameplate file named in spec.md §6.5 into
// a validated batch of *pcsstore.Nameplate, the input pcsstore.New builds
// both LAN stores from.
package nameplate

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/runZeroInc/pcsgw/pkg/pcsstore"
)

// requiredColumns are the header-driven CSV columns this loader recognizes.
// Extra columns are ignored; a header missing any required column fails the
// whole load. Per-row problems (unparseable or invalid values, duplicates)
// only skip that row.
var requiredColumns = []string{"logical_id", "goose_appid", "pcs_type"}

// Load reads path and returns every row that validates, logging and
// skipping the rest (spec.md §6.5: "Invalid rows are skipped with an error
// log; parsing continues."). Duplicate non-zero logical_id or goose_appid
// across the whole file is also treated as a per-row validation failure —
// whichever row is seen second is dropped.
func Load(path string, log *logrus.Logger) ([]*pcsstore.Nameplate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("nameplate: open %s: %w", path, err)
	}
	defer f.Close()
	return load(f, log)
}

func load(r io.Reader, log *logrus.Logger) ([]*pcsstore.Nameplate, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("nameplate: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, want := range requiredColumns {
		if _, ok := col[want]; !ok {
			return nil, fmt.Errorf("nameplate: missing required column %q", want)
		}
	}

	seenLogicalID := make(map[uint16]bool)
	seenAPPID := make(map[uint16]bool)
	var out []*pcsstore.Nameplate

	rowNum := 1
	for {
		rowNum++
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.WithError(err).Warnf("nameplate: row %d: malformed, skipping", rowNum)
			continue
		}

		np, err := parseRow(col, row)
		if err != nil {
			log.WithError(err).Warnf("nameplate: row %d: invalid, skipping", rowNum)
			continue
		}
		if err := np.Validate(); err != nil {
			log.WithError(err).Warnf("nameplate: row %d: invalid, skipping", rowNum)
			continue
		}
		if seenLogicalID[np.LogicalID] {
			log.Warnf("nameplate: row %d: duplicate logical_id %d, skipping", rowNum, np.LogicalID)
			continue
		}
		if seenAPPID[np.GooseAPPID] {
			log.Warnf("nameplate: row %d: duplicate goose_appid %d, skipping", rowNum, np.GooseAPPID)
			continue
		}
		seenLogicalID[np.LogicalID] = true
		seenAPPID[np.GooseAPPID] = true
		out = append(out, np)
	}
	return out, nil
}

func parseRow(col map[string]int, row []string) (*pcsstore.Nameplate, error) {
	get := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	logicalID, err := parseUint16(get("logical_id"))
	if err != nil {
		return nil, fmt.Errorf("logical_id: %w", err)
	}
	appid, err := parseUint16(get("goose_appid"))
	if err != nil {
		return nil, fmt.Errorf("goose_appid: %w", err)
	}

	np := &pcsstore.Nameplate{
		LogicalID:  logicalID,
		PCSType:    get("pcs_type"),
		GooseAPPID: appid,
		GocbRef:    get("gocb_ref"),
		DataSet:    get("data_set"),
		GoID:       get("go_id"),
	}

	if v := get("feed_line_id"); v != "" {
		fl, err := parseUint16(v)
		if err != nil {
			return nil, fmt.Errorf("feed_line_id: %w", err)
		}
		np.FeedLineID = fl
	}
	if v := get("pms_appid"); v != "" {
		pms, err := parseUint16(v)
		if err != nil {
			return nil, fmt.Errorf("pms_appid: %w", err)
		}
		np.PMSAPPID = pms
	}
	if v := get("conf_rev"); v != "" {
		cr, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("conf_rev: %w", err)
		}
		np.ConfRev = uint32(cr)
	} else {
		np.ConfRev = 1
	}
	if v := get("device_id"); v != "" {
		np.DeviceID = v
	}
	if v := get("simulation"); v != "" {
		np.Simulation = v == "1" || strings.EqualFold(v, "true")
	}
	if v := get("nds_com"); v != "" {
		np.NdsCom = v == "1" || strings.EqualFold(v, "true")
	}
	if v := get("mac"); v != "" {
		mac, err := parseMAC(v)
		if err != nil {
			return nil, fmt.Errorf("mac: %w", err)
		}
		np.MAC = mac
	}
	if v := get("tpid"); v != "" {
		tpid, err := parseUint16(v)
		if err != nil {
			return nil, fmt.Errorf("tpid: %w", err)
		}
		np.TPID = tpid
	}
	if v := get("tci"); v != "" {
		tci, err := parseUint16(v)
		if err != nil {
			return nil, fmt.Errorf("tci: %w", err)
		}
		np.TCI = tci
	}

	return np, nil
}

// parseMAC accepts the conventional colon-separated hex MAC notation
// (e.g. "01:0c:cd:01:00:01").
func parseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return mac, fmt.Errorf("expected 6 colon-separated octets, got %d", len(parts))
	}
	for i, p := range parts {
		b, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return mac, fmt.Errorf("octet %d: %w", i, err)
		}
		mac[i] = byte(b)
	}
	return mac, nil
}

func parseUint16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
