package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/exchangelabs/permutest/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one study run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to the study's significance gate.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
}

// JUnitFailure represents a tripped significance gate.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts an outcome to JUnit XML. The study becomes a single
// testcase that fails when gateTripped is set (the p-value did not clear the
// --fail-above threshold).
func ConvertToJUnit(o *models.Outcome, gateTripped bool, gateMessage string) *JUnitTestSuites {
	durationSec := float64(o.DurationMs) / 1000.0

	tc := JUnitTestCase{
		Name:      o.Study,
		Classname: "permutest",
		Time:      durationSec,
	}
	failures := 0
	if gateTripped {
		failures = 1
		tc.Failure = &JUnitFailure{
			Message: gateMessage,
			Type:    "SignificanceGate",
			Body:    fmt.Sprintf("p-value=%f observed_diff=%f trials=%d", o.PValue, o.ObservedDiff, o.Trials),
		}
	}

	suite := JUnitTestSuite{
		Name:      o.Study,
		Tests:     1,
		Failures:  failures,
		Time:      durationSec,
		Timestamp: o.Timestamp.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "p_value", Value: fmt.Sprintf("%.6f", o.PValue)},
			{Name: "observed_diff", Value: fmt.Sprintf("%.6f", o.ObservedDiff)},
			{Name: "trials", Value: fmt.Sprintf("%d", o.Trials)},
			{Name: "evidence", Value: o.Evidence},
		},
		TestCases: []JUnitTestCase{tc},
	}

	return &JUnitTestSuites{
		Tests:      1,
		Failures:   failures,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

// WriteJUnitXML writes JUnit XML for the outcome to the specified file path.
func WriteJUnitXML(o *models.Outcome, gateTripped bool, gateMessage, path string) error {
	suites := ConvertToJUnit(o, gateTripped, gateMessage)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0o644)
}
