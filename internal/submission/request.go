package submission

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bobmcallan/chartscope-portal/internal/client"
)

// Mode selects the request variant.
type Mode string

const (
	ModeTicker Mode = "ticker"
	ModeCSV    Mode = "csv"
)

// ParseMode maps form values to a Mode. Anything but "csv" is ticker mode.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeCSV)) {
		return ModeCSV
	}
	return ModeTicker
}

const (
	// MaxFileBytes is the upload size ceiling.
	MaxFileBytes = 10_485_760
	// FileExtension is the only accepted upload extension.
	FileExtension = ".csv"
	// MaxTickerLen is the longest accepted symbol.
	MaxTickerLen = 6
	// DefaultTimeframe is used when a ticker request has none.
	DefaultTimeframe = "1d"
)

// Timeframes are the accepted candle sizes, in display order.
var Timeframes = []Timeframe{
	{Value: "1h", Label: "1 Hour"},
	{Value: "4h", Label: "4 Hours"},
	{Value: "1d", Label: "Daily"},
	{Value: "1wk", Label: "Weekly"},
	{Value: "1mo", Label: "Monthly"},
}

// Timeframe is one candle-size choice.
type Timeframe struct {
	Value string
	Label string
}

// Request is an analysis request: a TickerRequest or a FileRequest.
type Request interface {
	Mode() Mode
	TierID() string
	// Validate reports the first input problem, nil when the request may be sent.
	Validate() *ValidationError
	form(tier string) client.Form
}

// TickerRequest analyses a listed symbol.
type TickerRequest struct {
	Symbol    string
	Timeframe string
	Tier      string
}

func (r TickerRequest) Mode() Mode     { return ModeTicker }
func (r TickerRequest) TierID() string { return strings.TrimSpace(r.Tier) }

func (r TickerRequest) Validate() *ValidationError {
	if strings.TrimSpace(r.Symbol) == "" {
		return &ValidationError{Field: "ticker", Message: "Please enter a ticker symbol."}
	}
	if tf := strings.TrimSpace(r.Timeframe); tf != "" && !ValidTimeframe(tf) {
		return &ValidationError{Field: "timeframe", Message: "Invalid timeframe. Choose 1h, 4h, 1d, 1wk or 1mo."}
	}
	return nil
}

func (r TickerRequest) form(tier string) client.Form {
	tf := strings.TrimSpace(r.Timeframe)
	if tf == "" {
		tf = DefaultTimeframe
	}
	return client.Form{Fields: []client.Field{
		{Name: "mode", Value: string(ModeTicker)},
		{Name: "ticker", Value: strings.TrimSpace(r.Symbol)},
		{Name: "timeframe", Value: tf},
		{Name: "tier", Value: tier},
	}}
}

// UploadFile is a selected price-history file.
type UploadFile struct {
	Name string
	Size int64
	Data []byte
}

// FileRequest analyses an uploaded price-history file.
type FileRequest struct {
	File *UploadFile
	Tier string
}

func (r FileRequest) Mode() Mode     { return ModeCSV }
func (r FileRequest) TierID() string { return strings.TrimSpace(r.Tier) }

func (r FileRequest) Validate() *ValidationError {
	if r.File == nil {
		return &ValidationError{Field: "file", Message: "Please select a .csv file."}
	}
	return ValidateFile(*r.File)
}

func (r FileRequest) form(tier string) client.Form {
	return client.Form{
		Fields: []client.Field{
			{Name: "mode", Value: string(ModeCSV)},
			{Name: "tier", Value: tier},
		},
		File: &client.FilePart{Field: "file", Filename: r.File.Name, Data: r.File.Data},
	}
}

// ValidateFile checks one file against the upload boundary.
func ValidateFile(f UploadFile) *ValidationError {
	if !strings.EqualFold(filepath.Ext(f.Name), FileExtension) {
		return &ValidationError{Field: "file", Message: "Invalid file type. Please upload a .csv file."}
	}
	size := f.Size
	if size == 0 {
		size = int64(len(f.Data))
	}
	if size > MaxFileBytes {
		return &ValidationError{Field: "file", Message: "File too large. Maximum size is 10 MB."}
	}
	return nil
}

// ValidateFiles checks a drop of files. Exactly one valid file is accepted;
// the caller only takes the file when the error is nil.
func ValidateFiles(files []UploadFile) (UploadFile, *ValidationError) {
	switch len(files) {
	case 0:
		return UploadFile{}, &ValidationError{Field: "file", Message: "Please select a .csv file."}
	case 1:
	default:
		return UploadFile{}, &ValidationError{Field: "file", Message: "Please drop a single file."}
	}
	if err := ValidateFile(files[0]); err != nil {
		return UploadFile{}, err
	}
	return files[0], nil
}

var tickerStrip = regexp.MustCompile(`[^A-Za-z0-9.]`)

// SanitizeTicker keeps letters, digits and dots, upper-cases them and caps
// the result at MaxTickerLen characters.
func SanitizeTicker(s string) string {
	s = strings.ToUpper(tickerStrip.ReplaceAllString(s, ""))
	if len(s) > MaxTickerLen {
		s = s[:MaxTickerLen]
	}
	return s
}

// ValidTimeframe reports whether tf is one of Timeframes.
func ValidTimeframe(tf string) bool {
	for _, t := range Timeframes {
		if t.Value == tf {
			return true
		}
	}
	return false
}
