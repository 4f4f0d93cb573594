// Package xmlcodec provides faithful, bidirectional translation between
// the Microsoft Project XML schema and the engine's data model. Ingest
// never converts lag units (see internal/lag) and export splices the
// current task/link set back into the retained source template rather
// than re-emitting a document from scratch, so unknown elements outside
// <Tasks> survive round-trip the way internal/marshal's frontmatter render preserves
// whatever body text surrounds the parsed metadata.
package xmlcodec

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jra3/scheduled/internal/apperr"
	"github.com/jra3/scheduled/internal/model"
)

// dateLayout is the timestamp shape Microsoft Project writes for Start,
// Finish, StartDate, StatusDate, CreateDate, etc. (no timezone offset).
const dateLayout = "2006-01-02T15:04:05"

type xmlDocument struct {
	XMLName    xml.Name `xml:"Project"`
	Name       string   `xml:"Name"`
	StartDate  string   `xml:"StartDate"`
	StatusDate string   `xml:"StatusDate"`
	Tasks      struct {
		Task []xmlTask `xml:"Task"`
	} `xml:"Tasks"`
}

type xmlTask struct {
	UID               string        `xml:"UID"`
	ID                string        `xml:"ID"`
	Name              string        `xml:"Name"`
	OutlineNumber     string        `xml:"OutlineNumber"`
	OutlineLevel      int           `xml:"OutlineLevel"`
	Duration          string        `xml:"Duration"`
	Value             string        `xml:"Value"`
	Milestone         string        `xml:"Milestone"`
	Summary           string        `xml:"Summary"`
	PercentComplete   string        `xml:"PercentComplete"`
	Start             string        `xml:"Start"`
	Finish            string        `xml:"Finish"`
	ActualStart       string        `xml:"ActualStart"`
	ActualFinish      string        `xml:"ActualFinish"`
	ActualDuration    string        `xml:"ActualDuration"`
	CreateDate        string        `xml:"CreateDate"`
	PredecessorLink   []xmlPredLink `xml:"PredecessorLink"`
}

type xmlPredLink struct {
	PredecessorUID string `xml:"PredecessorUID"`
	Type           int    `xml:"Type"`
	LinkLag        int    `xml:"LinkLag"`
	LagFormat      int    `xml:"LagFormat"`
}

// Parsed is the in-memory result of ingesting an XML document: project
// metadata, the flat task list, and the resolved predecessor links.
type Parsed struct {
	Project      model.Project
	Tasks        []model.Task
	Predecessors []model.Predecessor
}

// Parse decodes an XML document into the data model. Parsing tolerates
// the known Microsoft Project namespace or no namespace at all, because
// struct tags below match on local element name only.
func Parse(r io.Reader) (*Parsed, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Parse(err, "read XML document")
	}

	var doc xmlDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, apperr.Parse(err, "parse XML document")
	}

	project := model.Project{
		Name:        doc.Name,
		XMLTemplate: raw,
	}
	if doc.StartDate != "" {
		if t, err := time.Parse(dateLayout, doc.StartDate); err == nil {
			project.StartDate = t
		}
	}
	if doc.StatusDate != "" {
		if t, err := time.Parse(dateLayout, doc.StatusDate); err == nil {
			project.StatusDate = t
		}
	}

	uidToOutline := make(map[string]string, len(doc.Tasks.Task))
	for _, t := range doc.Tasks.Task {
		uidToOutline[t.UID] = t.OutlineNumber
	}

	tasks := make([]model.Task, 0, len(doc.Tasks.Task))
	var preds []model.Predecessor
	for _, t := range doc.Tasks.Task {
		task, err := taskFromXML(t)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)

		for _, link := range t.PredecessorLink {
			predOutline := uidToOutline[link.PredecessorUID]
			if predOutline == "" {
				predOutline = link.PredecessorUID
			}
			preds = append(preds, model.Predecessor{
				// TaskID temporarily holds the successor's outline number,
				// not a store ID: no store ID exists yet at parse time.
				// The caller resolves this to a real task ID before insert.
				TaskID:             t.OutlineNumber,
				PredecessorOutline: predOutline,
				Type:               model.LinkType(link.Type),
				Lag:                link.LinkLag,
				LagFormat:          link.LagFormat,
			})
		}
	}

	return &Parsed{Project: project, Tasks: tasks, Predecessors: preds}, nil
}

func taskFromXML(t xmlTask) (model.Task, error) {
	task := model.Task{
		UID:           t.UID,
		Name:          t.Name,
		OutlineNumber: t.OutlineNumber,
		OutlineLevel:  t.OutlineLevel,
		Milestone:     t.Milestone == "1",
		Summary:       t.Summary == "1",
	}

	if t.Value != "" {
		v := t.Value
		task.Value = &v
	}

	// A milestone's duration is always zero, even if the source document
	// wrote it as an empty string instead of PT0H0M0S.
	if t.Duration == "" && task.Milestone {
		task.Duration = "PT0H0M0S"
	} else if t.Duration != "" {
		task.Duration = t.Duration
	} else {
		task.Duration = "PT0H0M0S"
	}

	if t.PercentComplete != "" {
		pc, err := strconv.Atoi(t.PercentComplete)
		if err != nil {
			return model.Task{}, apperr.Parse(err, "invalid PercentComplete on task %s", t.UID)
		}
		task.PercentComplete = pc
	}

	for _, pair := range []struct {
		src string
		dst **time.Time
	}{
		{t.Start, &task.Start},
		{t.Finish, &task.Finish},
		{t.ActualStart, &task.ActualStart},
		{t.ActualFinish, &task.ActualFinish},
		{t.CreateDate, &task.CreateDate},
	} {
		if pair.src == "" {
			continue
		}
		if parsed, err := time.Parse(dateLayout, pair.src); err == nil {
			*pair.dst = &parsed
		}
	}

	if t.ActualDuration != "" {
		ad := t.ActualDuration
		task.ActualDuration = &ad
	}

	return task, nil
}

// taskOutlineBlockPattern matches the <Tasks>...</Tasks> subtree so it can
// be spliced out of the retained template and replaced with the current
// task/link set on export.
var taskOutlineBlockPattern = regexp.MustCompile(`(?s)<Tasks>.*?</Tasks>`)

// Render re-emits the project by splicing the current task and link set
// into the retained XML template. Everything outside <Tasks> is kept as
// the template has it, apart from the project's Name, StartDate and
// StatusDate, which are rewritten from project. Each Task is rendered
// from the model's fields only, so Task child elements the model does
// not carry (such as ID) are not re-emitted. Task order follows
// outline-number lexicographic ordering of integer segments.
func Render(tpl []byte, project model.Project, tasks []model.Task, preds []model.Predecessor) ([]byte, error) {
	if len(tpl) == 0 {
		tpl = emptyTemplate()
	}

	loc := taskOutlineBlockPattern.FindIndex(tpl)
	if loc == nil {
		return nil, apperr.Internal(nil, "template missing <Tasks> element")
	}
	prefix := tpl[:loc[0]]
	suffix := tpl[loc[1]:]

	prefix = replaceElement(prefix, "Name", project.Name)
	if !project.StartDate.IsZero() {
		prefix = replaceElement(prefix, "StartDate", project.StartDate.Format(dateLayout))
	}
	if !project.StatusDate.IsZero() {
		prefix = replaceElement(prefix, "StatusDate", project.StatusDate.Format(dateLayout))
	}

	predsByTaskID := make(map[string][]model.Predecessor)
	for _, p := range preds {
		predsByTaskID[p.TaskID] = append(predsByTaskID[p.TaskID], p)
	}

	uidByOutline := make(map[string]string, len(tasks))
	for _, t := range tasks {
		uidByOutline[t.OutlineNumber] = t.UID
	}

	sorted := make([]model.Task, len(tasks))
	copy(sorted, tasks)
	sort.Slice(sorted, func(i, j int) bool {
		return compareOutline(sorted[i].OutlineNumber, sorted[j].OutlineNumber) < 0
	})

	var buf bytes.Buffer
	buf.WriteString("<Tasks>")
	for _, t := range sorted {
		writeTask(&buf, t, predsByTaskID[t.ID], uidByOutline)
	}
	buf.WriteString("</Tasks>")

	out := make([]byte, 0, len(prefix)+buf.Len()+len(suffix))
	out = append(out, prefix...)
	out = append(out, buf.Bytes()...)
	out = append(out, suffix...)
	return out, nil
}

func writeTask(buf *bytes.Buffer, t model.Task, preds []model.Predecessor, uidByOutline map[string]string) {
	buf.WriteString("<Task>")
	writeElem(buf, "UID", t.UID)
	writeElem(buf, "Name", t.Name)
	writeElem(buf, "OutlineNumber", t.OutlineNumber)
	writeElem(buf, "OutlineLevel", strconv.Itoa(t.OutlineLevel))
	writeElem(buf, "Duration", t.Duration)
	if t.Value != nil {
		writeElem(buf, "Value", *t.Value)
	}
	writeElem(buf, "Milestone", boolDigit(t.Milestone))
	writeElem(buf, "Summary", boolDigit(t.Summary))
	writeElem(buf, "PercentComplete", strconv.Itoa(t.PercentComplete))
	writeTimeElem(buf, "Start", t.Start)
	writeTimeElem(buf, "Finish", t.Finish)
	writeTimeElem(buf, "ActualStart", t.ActualStart)
	writeTimeElem(buf, "ActualFinish", t.ActualFinish)
	if t.ActualDuration != nil {
		writeElem(buf, "ActualDuration", *t.ActualDuration)
	}
	writeTimeElem(buf, "CreateDate", t.CreateDate)

	for _, p := range preds {
		// Re-emit the predecessor's source UID, not its outline number: the
		// outline can be renumbered across edits, but downstream tools
		// resolve PredecessorUID against each Task's own UID element.
		uid := uidByOutline[p.PredecessorOutline]
		if uid == "" {
			uid = p.PredecessorOutline
		}
		buf.WriteString("<PredecessorLink>")
		writeElem(buf, "PredecessorUID", uid)
		writeElem(buf, "Type", strconv.Itoa(int(p.Type)))
		writeElem(buf, "LinkLag", strconv.Itoa(p.Lag))
		writeElem(buf, "LagFormat", strconv.Itoa(p.LagFormat))
		buf.WriteString("</PredecessorLink>")
	}

	buf.WriteString("</Task>")
}

func writeElem(buf *bytes.Buffer, name, value string) {
	buf.WriteString("<")
	buf.WriteString(name)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(value))
	buf.WriteString("</")
	buf.WriteString(name)
	buf.WriteString(">")
}

func writeTimeElem(buf *bytes.Buffer, name string, t *time.Time) {
	if t == nil {
		return
	}
	writeElem(buf, name, t.Format(dateLayout))
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// replaceElement replaces the first occurrence of <name>...</name> in src
// with a freshly rendered element, or appends one before the first Task
// block if the element was absent from the template.
func replaceElement(src []byte, name, value string) []byte {
	pattern := regexp.MustCompile(fmt.Sprintf(`(?s)<%s>.*?</%s>`, name, name))
	var rendered bytes.Buffer
	writeElem(&rendered, name, value)
	if loc := pattern.FindIndex(src); loc != nil {
		out := make([]byte, 0, len(src)-(loc[1]-loc[0])+rendered.Len())
		out = append(out, src[:loc[0]]...)
		out = append(out, rendered.Bytes()...)
		return append(out, src[loc[1]:]...)
	}
	return append(append([]byte{}, src...), rendered.Bytes()...)
}

// compareOutline orders two outline numbers by comparing their integer
// segments left to right, e.g. "1.2" < "1.10" < "2".
func compareOutline(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		ai, _ := strconv.Atoi(as[i])
		bi, _ := strconv.Atoi(bs[i])
		if ai != bi {
			if ai < bi {
				return -1
			}
			return 1
		}
	}
	return len(as) - len(bs)
}

func emptyTemplate() []byte {
	return []byte("<Project><Name></Name><StartDate></StartDate><StatusDate></StatusDate><Tasks></Tasks></Project>")
}
