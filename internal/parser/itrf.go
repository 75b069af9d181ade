package parser

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/radioastro101/backend/internal/interferometry"
	"github.com/radioastro101/backend/internal/models"
)

const opAntennas = "parse antennas"

// maxLineSize bounds a single table row.
const maxLineSize = 1024 * 1024

// ParseAntennaFile parses an antenna position table from disk.
func ParseAntennaFile(filePath string) (*models.AntennaTable, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, interferometry.Resourcef(opAntennas, "antenna table %s not found", filePath)
		}
		return nil, interferometry.Resourcef(opAntennas, "open %s: %v", filePath, err)
	}
	defer file.Close()

	return ParseAntennaTable(file)
}

// ParseAntennaTable parses a whitespace-delimited ITRF table. The first
// non-comment line names the columns and must contain X, Y and Z; a NAME
// or STATION column, when present, labels each antenna.
func ParseAntennaTable(r io.Reader) (*models.AntennaTable, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		table   *models.AntennaTable
		xi      = -1
		yi      = -1
		zi      = -1
		namei   = -1
		lineNum int
	)

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		if table == nil {
			table = &models.AntennaTable{Columns: fields}
			for i, col := range fields {
				switch strings.ToUpper(col) {
				case "X":
					xi = i
				case "Y":
					yi = i
				case "Z":
					zi = i
				case "NAME", "STATION":
					namei = i
				}
			}
			if xi < 0 || yi < 0 || zi < 0 {
				return nil, lineError(lineNum, line, "header must name X, Y and Z columns")
			}
			continue
		}

		if len(fields) < len(table.Columns) {
			return nil, lineError(lineNum, line, "expected "+strconv.Itoa(len(table.Columns))+" fields, got "+strconv.Itoa(len(fields)))
		}

		var pos interferometry.Vec3
		for _, c := range []struct {
			idx int
			dst *float64
		}{{xi, &pos.X}, {yi, &pos.Y}, {zi, &pos.Z}} {
			v, err := strconv.ParseFloat(fields[c.idx], 64)
			if err != nil {
				return nil, lineError(lineNum, line, "column "+table.Columns[c.idx]+": not a number: "+fields[c.idx])
			}
			*c.dst = v
		}
		table.Positions = append(table.Positions, pos)
		if namei >= 0 {
			table.Names = append(table.Names, fields[namei])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, interferometry.Validationf(opAntennas, "read table: %v", err)
	}

	if table == nil {
		return nil, interferometry.Validationf(opAntennas, "table is empty")
	}
	if table.Len() == 0 {
		return nil, interferometry.Validationf(opAntennas, "table has no antenna rows")
	}
	return table, nil
}

func lineError(line int, content, reason string) error {
	return &interferometry.Error{
		Kind: interferometry.KindValidation,
		Op:   opAntennas,
		Err:  &models.ParseError{Line: line, Content: content, Reason: reason},
	}
}
