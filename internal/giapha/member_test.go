package giapha

import "testing"

const memberFixture = `<html><body><table>
<tr><td colspan="2"><b>Chi tiết gia đình</b></td></tr>
<tr><td>Là con của: <a href="javascript:o(72,3)">Nguyễn Văn Cha</a></td></tr>
<tr><td colspan="2"><b>Người trong gia đình</b></td></tr>
<tr><td>Tên</td><td>Nguyễn Văn A (Nam)</td></tr>
<tr><td>Tên thường:</td><td>Tư A</td></tr>
<tr><td>Đời thứ:</td><td>5</td></tr>
<tr><td>Là con thứ:</td><td>2</td></tr>
<tr><td>Ngày sinh:</td><td>15/3/1920</td></tr>
<tr><td>Ngày mất:</td><td>1990</td></tr>
<tr><td>Nơi an táng:</td><td>Nghĩa trang quê nhà</td></tr>
<tr><td>Nghề nghiệp:</td><td>Nông dân</td></tr>
<tr><td>Sự nghiệp, công đức, ghi chú</td></tr>
<tr><td>Ông làm nghề nông, có công khai hoang.</td></tr>
<tr><td colspan="2"><b>Liên quan (chồng, vợ)</b></td></tr>
<tr><td>Tên</td><td>Trần Thị B (Nữ)</td></tr>
<tr><td>Ngày sinh:</td><td>1925</td></tr>
<tr><td>Tên</td><td>Lê Thị C (Nữ)</td></tr>
<tr><td><b>Các anh em, dâu rể:</b><br>Nguyễn Thị G (Nữ)</td></tr>
<tr><td><b>Con cái:</b><br>Nguyễn Văn D (Nam)<br>Nguyễn Thị E (Nữ)</td></tr>
</table></body></html>`

func TestParseMember(t *testing.T) {
	rec, err := ParseMember(memberFixture, "72", "15.html")
	if err != nil {
		t.Fatalf("ParseMember: %v", err)
	}

	if rec.Code != "GPVN-72-15" {
		t.Errorf("Code = %q", rec.Code)
	}
	if rec.LastName != "Nguyễn" || rec.FirstName != "Văn A" {
		t.Errorf("name = %q %q", rec.LastName, rec.FirstName)
	}
	if rec.Gender != GenderMale {
		t.Errorf("Gender = %s", rec.Gender)
	}
	if rec.Nickname != "Tư A" {
		t.Errorf("Nickname = %q", rec.Nickname)
	}
	if rec.Generation != 5 || rec.Order != 2 {
		t.Errorf("generation/order = %d/%d", rec.Generation, rec.Order)
	}
	if rec.DateOfBirth != "1920-03-15" {
		t.Errorf("DateOfBirth = %q", rec.DateOfBirth)
	}
	if rec.DateOfDeath != "1990-01-01" || !rec.IsDeceased {
		t.Errorf("DateOfDeath = %q, IsDeceased = %v", rec.DateOfDeath, rec.IsDeceased)
	}
	if rec.PlaceOfDeath != "Nghĩa trang quê nhà" {
		t.Errorf("PlaceOfDeath = %q", rec.PlaceOfDeath)
	}
	if rec.Occupation != "Nông dân" {
		t.Errorf("Occupation = %q", rec.Occupation)
	}
	if rec.Biography != "Ông làm nghề nông, có công khai hoang." {
		t.Errorf("Biography = %q", rec.Biography)
	}

	if rec.Father == nil {
		t.Fatal("Father = nil")
	}
	if rec.Father.Code != "GPVN-72-3" {
		t.Errorf("Father.Code = %q", rec.Father.Code)
	}
	if rec.Father.Gender != GenderMale {
		t.Errorf("Father.Gender = %s", rec.Father.Gender)
	}
	if rec.IsRoot {
		t.Error("IsRoot = true for member with father")
	}

	if len(rec.Spouses) != 2 {
		t.Fatalf("Spouses = %d, want 2", len(rec.Spouses))
	}
	if rec.Spouses[0].Code != "GPVN-72-15-S1" || rec.Spouses[1].Code != "GPVN-72-15-S2" {
		t.Errorf("spouse codes = %q, %q", rec.Spouses[0].Code, rec.Spouses[1].Code)
	}
	if rec.Spouses[0].FirstName != "Thị B" || rec.Spouses[0].DateOfBirth != "1925-01-01" {
		t.Errorf("first spouse = %+v", rec.Spouses[0])
	}
	if rec.Spouses[1].LastName != "Lê" {
		t.Errorf("second spouse = %+v", rec.Spouses[1])
	}

	if len(rec.Siblings) != 1 || rec.Siblings[0].FirstName != "Thị G" {
		t.Errorf("siblings = %+v", rec.Siblings)
	}
	if len(rec.Children) != 2 {
		t.Fatalf("Children = %d, want 2", len(rec.Children))
	}
	if rec.Children[0].FirstName != "Văn D" || rec.Children[1].Gender != GenderFemale {
		t.Errorf("children = %+v", rec.Children)
	}
}

func TestParseMemberProgenitor(t *testing.T) {
	page := `<table>
<tr><td><b>Chi tiết gia đình</b></td></tr>
<tr><td>Là con của: Thủy Tổ dòng họ</td></tr>
<tr><td><b>Người trong gia đình</b></td></tr>
<tr><td>Tên</td><td>Nguyễn Tổ (Nam)</td></tr>
</table>`
	rec, err := ParseMember(page, "72", "1.html")
	if err != nil {
		t.Fatalf("ParseMember: %v", err)
	}
	if rec.Father != nil {
		t.Errorf("Father = %+v, want nil", rec.Father)
	}
	if !rec.IsRoot {
		t.Error("IsRoot = false for progenitor")
	}
}

func TestParseMemberSelfReferentialFather(t *testing.T) {
	page := `<table>
<tr><td><b>Chi tiết gia đình</b></td></tr>
<tr><td>Là con của: <a href="javascript:o(72,1)">Nguyễn Tổ</a></td></tr>
<tr><td><b>Người trong gia đình</b></td></tr>
<tr><td>Tên</td><td>Nguyễn Tổ (Nam)</td></tr>
</table>`
	rec, err := ParseMember(page, "72", "1.html")
	if err != nil {
		t.Fatalf("ParseMember: %v", err)
	}
	if rec.Father != nil {
		t.Errorf("Father = %+v, want nil after self-reference guard", rec.Father)
	}
	if !rec.IsRoot {
		t.Error("IsRoot = false after self-reference guard")
	}
}

func TestParseMemberNoTable(t *testing.T) {
	rec, err := ParseMember("<html><body><p>trang lỗi</p></body></html>", "72", "9.html")
	if err != nil {
		t.Fatalf("ParseMember: %v", err)
	}
	if rec.Code != "GPVN-72-9" {
		t.Errorf("Code = %q", rec.Code)
	}
	if rec.LastName != "" || rec.FirstName != "" || rec.Father != nil || len(rec.Spouses) != 0 {
		t.Errorf("record not empty: %+v", rec)
	}
	if rec.IsRoot {
		t.Error("IsRoot = true for structurally empty page")
	}
}

func TestParseMemberUnknownNameSentinel(t *testing.T) {
	page := `<table>
<tr><td><b>Người trong gia đình</b></td></tr>
<tr><td>Tên</td><td>.. (Nam)</td></tr>
</table>`
	rec, err := ParseMember(page, "72", "4.html")
	if err != nil {
		t.Fatalf("ParseMember: %v", err)
	}
	if rec.HasName() {
		t.Errorf("HasName() = true for sentinel name %q %q", rec.LastName, rec.FirstName)
	}
}

func TestParseMemberLongevityMarksDeceased(t *testing.T) {
	page := `<table>
<tr><td><b>Người trong gia đình</b></td></tr>
<tr><td>Tên</td><td>Nguyễn Văn F (Nam)</td></tr>
<tr><td>Hưởng thọ:</td><td>82 tuổi</td></tr>
</table>`
	rec, err := ParseMember(page, "72", "6.html")
	if err != nil {
		t.Fatalf("ParseMember: %v", err)
	}
	if !rec.IsDeceased {
		t.Error("IsDeceased = false despite longevity row")
	}
	if rec.DateOfDeath != "" {
		t.Errorf("DateOfDeath = %q, want empty", rec.DateOfDeath)
	}
}
