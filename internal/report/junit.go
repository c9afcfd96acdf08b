/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/fulmenhq/caretaker/internal/content"
)

// formatJUnit renders one testsuite per category and one testcase per content
// node with findings. Warnings and errors become failures and info messages go
// to system-out. A category without findings gets a single passing testcase.
func (f *Formatter) formatJUnit(report *Report) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suites := doc.CreateElement("testsuites")
	suites.CreateAttr("name", report.Metadata.Package)

	totalTests, totalFailures := 0, 0
	for _, group := range report.ByCategory() {
		suite := suites.CreateElement("testsuite")
		suite.CreateAttr("name", string(group.Category))

		tests, failures := 0, 0
		for _, node := range groupByNode(group.Messages) {
			tests++
			tc := suite.CreateElement("testcase")
			tc.CreateAttr("classname", string(group.Category))
			tc.CreateAttr("name", fmt.Sprintf("%s [%s]", node.title, node.id))

			var out []string
			failed := false
			for _, m := range node.messages {
				if m.Level.Rank() < content.LevelWarning.Rank() {
					out = append(out, m.Summary)
					continue
				}
				failed = true
				fail := tc.CreateElement("failure")
				fail.CreateAttr("type", m.Type)
				fail.CreateAttr("message", m.Summary)
				fail.SetText(junitBody(m))
			}
			if failed {
				failures++
			}
			if len(out) > 0 {
				tc.CreateElement("system-out").SetText(strings.Join(out, "\n"))
			}
		}
		if tests == 0 {
			tests = 1
			tc := suite.CreateElement("testcase")
			tc.CreateAttr("classname", string(group.Category))
			tc.CreateAttr("name", string(group.Category))
		}

		suite.CreateAttr("tests", strconv.Itoa(tests))
		suite.CreateAttr("failures", strconv.Itoa(failures))
		totalTests += tests
		totalFailures += failures
	}
	suites.CreateAttr("tests", strconv.Itoa(totalTests))
	suites.CreateAttr("failures", strconv.Itoa(totalFailures))

	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to write JUnit XML: %w", err)
	}
	return out, nil
}

type nodeMessages struct {
	id       string
	title    string
	messages []content.Message
}

func groupByNode(msgs []content.Message) []*nodeMessages {
	var order []*nodeMessages
	byID := make(map[string]*nodeMessages)
	for _, m := range msgs {
		nm, ok := byID[m.SubContentID]
		if !ok {
			nm = &nodeMessages{id: m.SubContentID, title: m.Details.Title}
			byID[m.SubContentID] = nm
			order = append(order, nm)
		}
		nm.messages = append(nm.messages, m)
	}
	return order
}

func junitBody(m content.Message) string {
	var lines []string
	lines = append(lines, m.Description...)
	if m.Details.Path != "" {
		lines = append(lines, "File: "+m.Details.Path)
	}
	for _, r := range m.Recommendation {
		lines = append(lines, "Recommendation: "+r)
	}
	return strings.Join(lines, "\n")
}
