package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gorates/internal"
	"gorates/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is read from workbooks when no sheet is configured
const DefaultSheet = "Sheet1"

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx", "csv", or the unrecognized extension
	sheet    string
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), ".")
	return &DataReader{
		filePath: filePath,
		fileType: fileType,
		sheet:    DefaultSheet,
		logger:   internal.DefaultLogger.WithPrefix("DataReader"),
	}
}

// WithSheet selects the workbook sheet to read (ignored for CSV files)
func (r *DataReader) WithSheet(sheet string) *DataReader {
	if sheet != "" {
		r.sheet = sheet
	}
	return r
}

// WithLogger replaces the reader's logger. A nil logger keeps the default.
func (r *DataReader) WithLogger(logger *internal.Logger) *DataReader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	r.logger = logger.WithPrefix("DataReader")
	return r
}

// ReadData reads data from Excel or CSV files into structured format
func (r *DataReader) ReadData() (*ExcelData, error) {
	r.logger.Info("Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.InvalidInput(fmt.Sprintf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath))
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported file type %q: %s", r.fileType, r.filePath))
	}
}

// ReadTable reads the file and returns it as numeric columns
func (r *DataReader) ReadTable() (*Table, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	return NewTable(data), nil
}

// readExcelData reads the configured sheet into structured format
func (r *DataReader) readExcelData() (*ExcelData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", r.sheet)
	}
	r.logger.Debug("%s read in %.2fms (%d rows)", r.sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, errors.InvalidInput("Excel file must have at least a header row and one data row")
	}

	return r.processRows(rows)
}

// readCSVData reads CSV data into structured format
func (r *DataReader) readCSVData() (*ExcelData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	readStart := time.Now()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV file")
	}
	r.logger.Debug("CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, errors.InvalidInput("CSV file must have at least a header row and one data row")
	}

	return r.processRows(rows)
}

// processRows converts raw string rows into ExcelData format
func (r *DataReader) processRows(rows [][]string) (*ExcelData, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		rowData := make(RawRowData, len(headers))
		for j, cell := range rows[i] {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	r.logger.Info("%s file processed (%d columns, %d rows)", strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &ExcelData{
		Headers: headers,
		Rows:    dataRows,
	}, nil
}

// Table exposes the columns of an ExcelData as numbers
type Table struct {
	data *ExcelData
}

// NewTable wraps already-read data
func NewTable(data *ExcelData) *Table {
	return &Table{data: data}
}

// Headers returns the column names
func (t *Table) Headers() []string {
	return append([]string(nil), t.data.Headers...)
}

// RowCount returns the number of data rows
func (t *Table) RowCount() int {
	return len(t.data.Rows)
}

// Column returns a column parsed as float64. Boolean words map to 1 and 0.
func (t *Table) Column(name string) ([]float64, error) {
	if !t.hasColumn(name) {
		return nil, errors.InvalidInput(fmt.Sprintf("column %q not found (have %s)", name, strings.Join(t.data.Headers, ", ")))
	}

	values := make([]float64, len(t.data.Rows))
	for i, row := range t.data.Rows {
		v, err := parseCell(row[name])
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("column %q row %d: %v", name, i+1, err))
		}
		values[i] = v
	}
	return values, nil
}

func (t *Table) hasColumn(name string) bool {
	for _, h := range t.data.Headers {
		if h == name {
			return true
		}
	}
	return false
}

func parseCell(cell string) (float64, error) {
	switch strings.ToLower(cell) {
	case "true", "yes", "y":
		return 1, nil
	case "false", "no", "n":
		return 0, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not numeric", cell)
	}
	return v, nil
}
