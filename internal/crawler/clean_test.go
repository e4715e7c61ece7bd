package crawler

import (
	"strings"
	"testing"

	"github.com/anatolykoptev/go_giapha/internal/giapha"
)

const rawMemberPage = `<html><body>
<table><tr>
<td width="20%">menu</td>
<td colspan="2" valign="top" background="images/bg.jpeg" height="100%">
  <table>
    <tr><td><p><font size="+1" color="blue">Chi tiết gia đình</font></p></td></tr>
    <tr><td>Là con của: <a class="x" target="_top" href="javascript:o(72,3)">Nguyễn Văn Cha</a></td></tr>
    <tr><td><p><font size="+1" color="blue">Người trong gia đình</font></p></td></tr>
    <tr><td><span class="lbl">Tên</span></td><td><font face="Arial">Nguyễn Văn A (Nam)</font></td></tr>
  </table>
</td>
</tr></table>
</body></html>`

func TestCleanMemberPage(t *testing.T) {
	cleaned := string(CleanMemberPage([]byte(rawMemberPage)))

	for _, gone := range []string{"<font", "<span", "<p>", "menu", `width="20%"`, `class=`, `target=`} {
		if strings.Contains(cleaned, gone) {
			t.Errorf("cleaned page still contains %q", gone)
		}
	}
	if !strings.Contains(cleaned, `href="javascript:o(72,3)"`) {
		t.Error("father link href must survive cleaning")
	}
	if !strings.Contains(cleaned, "Nguyễn Văn A (Nam)") {
		t.Error("cell text lost")
	}

	// The cleaned fragment must stay parseable by the member parser.
	rec, err := giapha.ParseMember(cleaned, "72", "15.html")
	if err != nil {
		t.Fatalf("ParseMember on cleaned page: %v", err)
	}
	if rec.LastName != "Nguyễn" || rec.FirstName != "Văn A" {
		t.Errorf("parsed name = %q %q", rec.LastName, rec.FirstName)
	}
	if rec.Father == nil || rec.Father.Code != "GPVN-72-3" {
		t.Errorf("parsed father = %+v", rec.Father)
	}
}

func TestCleanMemberPageWithoutContentCell(t *testing.T) {
	raw := []byte("<html><body><p>Error code: 17</p></body></html>")
	if got := CleanMemberPage(raw); string(got) != string(raw) {
		t.Errorf("page without content cell must be kept as-is, got %q", got)
	}
}

func TestCleanOverviewPageKeepsFirstRow(t *testing.T) {
	raw := `<html><body>
<td valign="top" background="images/bg.jpeg" height="100%">
  <table>
    <tr><td><div align="center"><font color="#ff0000" size="6">GIA PHẢ HỌ NGUYỄN</font></div></td></tr>
    <tr><td>navigation row</td></tr>
  </table>
</td>
</body></html>`
	cleaned := string(CleanOverviewPage([]byte(raw)))
	if !strings.Contains(cleaned, "GIA PHẢ HỌ NGUYỄN") {
		t.Error("banner row lost")
	}
	if strings.Contains(cleaned, "navigation row") {
		t.Error("second row must be dropped")
	}
}

func TestIsSoftError(t *testing.T) {
	if !isSoftError([]byte("... Error code: 5 ... Error message: no such family ...")) {
		t.Error("soft error page not detected")
	}
	if isSoftError([]byte("<html>normal page</html>")) {
		t.Error("false positive")
	}
}
