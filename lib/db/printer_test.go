package db

import (
	"errors"
	"strings"
	"testing"

	"github.com/ValentinKolb/propdb/lib/host"
	"github.com/ValentinKolb/propdb/lib/value"
)

func TestPrintElements(t *testing.T) {
	env := newTestEnv(t, nil)
	d := env.mustGet(t, "print")
	d.Set("foo", value.String("bar"))
	d.Set("pos", value.Vector(1, 2, 3))
	d.Set("ok", value.Bool(true))

	sink := host.NewRecordingSink()
	env.manager.PrintElements("print", "steve", sink)

	expected := []string{
		"[Database]: print (size: 3)",
		"- [foo: bar]",
		`- [pos: {"x":1,"y":2,"z":3}]`,
		"- [ok: true]",
	}
	got := sink.Texts()
	if strings.Join(got, "\n") != strings.Join(expected, "\n") {
		t.Errorf("Expected\n%s\ngot\n%s", strings.Join(expected, "\n"), strings.Join(got, "\n"))
	}
	for _, l := range sink.Lines() {
		if l.Recipient != "steve" {
			t.Errorf("Expected recipient steve, got %s", l.Recipient)
		}
	}
}

func TestPrintElementsEmpty(t *testing.T) {
	env := newTestEnv(t, nil)
	lines := FormatElements(env.mustGet(t, "empty"))
	if len(lines) != 1 || lines[0] != "[Database]: empty (size: 0)" {
		t.Errorf("Unexpected lines %v", lines)
	}
}

func TestPrintElementsNeverFails(t *testing.T) {
	env := newTestEnv(t, nil)
	d := env.mustGet(t, "quiet")
	d.Set("k", value.String("v"))

	sink := host.NewRecordingSink()
	sink.FailWith(errors.New("player left"))

	// must neither panic nor return an error
	PrintElements(d, "alex", sink)
	PrintElements(d, "alex", nil)

	if err := env.store.WriteProperty(StorageKey("corrupt"), "[]"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	sink.FailWith(nil)
	env.manager.PrintElements("corrupt", "alex", sink)
	if texts := sink.Texts(); len(texts) != 1 || !strings.Contains(texts[0], "could not be loaded") {
		t.Errorf("Expected an error line for a corrupt database, got %v", texts)
	}
}
