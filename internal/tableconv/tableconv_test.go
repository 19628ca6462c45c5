package tableconv

import "testing"

func TestConvertBasicTable(t *testing.T) {
	in := "<table><tr><td>A</td><td>B</td><td>C</td></tr><tr><td>D</td><td>E</td><td>F</td></tr></table>"
	want := "| A | B | C |\n| --- | --- | --- |\n| D | E | F |\n"
	if got := Convert(in); got != want {
		t.Errorf("Convert() = %q, want %q", got, want)
	}
}

func TestConvertHeaderCells(t *testing.T) {
	in := "<table><tr><th>Name</th><th>Age</th></tr><tr><td>Ann</td><td>7</td></tr></table>"
	want := "| Name | Age |\n| --- | --- |\n| Ann | 7 |\n"
	if got := Convert(in); got != want {
		t.Errorf("Convert() = %q, want %q", got, want)
	}
}

func TestConvertRaggedRows(t *testing.T) {
	in := "<table><tr><td>A</td><td>B</td><td>C</td></tr><tr><td>D</td><td>E</td></tr></table>"
	want := "| A | B | C |\n| --- | --- | --- |\n| D | E |  |\n"
	if got := Convert(in); got != want {
		t.Errorf("Convert() = %q, want %q", got, want)
	}
}

func TestConvertEscapesPipes(t *testing.T) {
	in := "<table><tr><td>a|b</td></tr></table>"
	want := "| a\\|b |\n| --- |\n"
	if got := Convert(in); got != want {
		t.Errorf("Convert() = %q, want %q", got, want)
	}
}

func TestConvertCellCleanup(t *testing.T) {
	in := "<table><tr><td> <b>bold</b>\n   text </td><td>x &amp; y</td><td>a<br>b</td></tr></table>"
	want := "| bold text | x & y | a b |\n| --- | --- | --- |\n"
	if got := Convert(in); got != want {
		t.Errorf("Convert() = %q, want %q", got, want)
	}
}

func TestConvertIdentityWithoutTables(t *testing.T) {
	in := "# Heading\n\nJust prose with | pipes and <em>tags</em>.\n"
	if got := Convert(in); got != in {
		t.Errorf("Convert() = %q, want input unchanged", got)
	}
}

func TestConvertKeepsSurroundingContent(t *testing.T) {
	in := "before\n<table><tr><td>A</td></tr></table>\nafter"
	want := "before\n| A |\n| --- |\n\nafter"
	if got := Convert(in); got != want {
		t.Errorf("Convert() = %q, want %q", got, want)
	}
}

func TestConvertMultipleTables(t *testing.T) {
	in := "<table><tr><td>1</td></tr></table>mid<table><tr><td>2</td></tr></table>"
	want := "| 1 |\n| --- |\nmid| 2 |\n| --- |\n"
	if got := Convert(in); got != want {
		t.Errorf("Convert() = %q, want %q", got, want)
	}
}

func TestConvertRemovesEmptyTable(t *testing.T) {
	in := "x<table></table>y"
	if got := Convert(in); got != "xy" {
		t.Errorf("Convert() = %q, want %q", got, "xy")
	}
}

func TestConvertMalformedPassthrough(t *testing.T) {
	in := "text <table><tr><td>never closed"
	if got := Convert(in); got != in {
		t.Errorf("Convert() = %q, want input unchanged", got)
	}
}

func TestConvertOmittedRowCloser(t *testing.T) {
	in := "before\n<table><tr><td>KEEPME</td></table>\nafter"
	want := "before\n| KEEPME |\n| --- |\n\nafter"
	if got := Convert(in); got != want {
		t.Errorf("Convert() = %q, want %q", got, want)
	}
}

func TestConvertOmittedCellCloserKeepsCell(t *testing.T) {
	in := "<table><tr><td>A</td><td>KEEPME</tr></table>"
	want := "| A | KEEPME |\n| --- | --- |\n"
	if got := Convert(in); got != want {
		t.Errorf("Convert() = %q, want %q", got, want)
	}
}

func TestConvertTagOmissionStyle(t *testing.T) {
	in := "<table><tr><td>A<td>B<tr><td>C<td>D</table>"
	want := "| A | B |\n| --- | --- |\n| C | D |\n"
	if got := Convert(in); got != want {
		t.Errorf("Convert() = %q, want %q", got, want)
	}
}

func TestConvertRowlessTableKeepsText(t *testing.T) {
	in := "x<table>stray text</table>y"
	if got := Convert(in); got != in {
		t.Errorf("Convert() = %q, want input unchanged", got)
	}
}

func TestConvertCaseInsensitive(t *testing.T) {
	in := "<TABLE><TR><TD>A</TD></TR></TABLE>"
	want := "| A |\n| --- |\n"
	if got := Convert(in); got != want {
		t.Errorf("Convert() = %q, want %q", got, want)
	}
}

func TestConvertIdempotent(t *testing.T) {
	in := "intro\n<table><tr><td>A</td><td>B</td></tr><tr><td>C</td><td>D</td></tr></table>\noutro\n"
	once := Convert(in)
	if twice := Convert(once); twice != once {
		t.Errorf("Convert(Convert(x)) = %q, want %q", twice, once)
	}
}

func TestContainsTable(t *testing.T) {
	if !ContainsTable("<table><tr></tr></table>") {
		t.Error("ContainsTable(table) = false")
	}
	if !ContainsTable(`<TABLE class="wide">`) {
		t.Error("ContainsTable(open tag with attrs) = false")
	}
	if ContainsTable("| a | b |\n| --- | --- |") {
		t.Error("ContainsTable(markdown table) = true")
	}
	if ContainsTable("tablet <tables>") {
		t.Error("ContainsTable(near miss) = true")
	}
}
