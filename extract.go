package edinet

// CoverPagePrefix is the namespace prefix of EDINET cover-page (DEI) elements
const CoverPagePrefix = "jpdei_cor:"

// Element name fragments for each cover-page field
var (
	RepresentativeKeywords      = []string{"TitleAndNameOfRepresentative", "RepresentativeTitleAndName", "PersonInCharge"}
	RepresentativeNameKeywords  = []string{"NameOfRepresentative", "RepresentativeName"}
	RepresentativeTitleKeywords = []string{"TitleOfRepresentative", "RepresentativeTitle"}
	AddressKeywords             = []string{"AddressOfRegisteredHead", "AddressOfMainOffice", "AddressOfHeadOffice", "LocationOfMainOffice"}
	CapitalKeywords             = []string{"CapitalStock", "CapitalAmount", "Capital"}
)

// CompanyInfo is the company profile read from a filing's cover page.
// Nil fields were not present in the filing.
type CompanyInfo struct {
	RepresentativeName  *string `json:"representativeName" yaml:"representativeName"`
	RepresentativeTitle *string `json:"representativeTitle" yaml:"representativeTitle"`
	HeadOfficeAddress   *string `json:"headOfficeAddress" yaml:"headOfficeAddress"`
	CapitalStock        *string `json:"capitalStock" yaml:"capitalStock"`
}

// lookupField tries the exact cover-page element names first, then any
// element whose name contains one of the keywords
func lookupField(root *Node, keywords []string) string {
	qualified := make([]string, len(keywords))
	for i, kw := range keywords {
		qualified[i] = CoverPagePrefix + kw
	}
	if v, ok := FindFirstValue(root, qualified...); ok {
		return v
	}
	v, _ := FindFirstValueByKeyword(root, keywords...)
	return v
}

func normalizedField(s string) *string {
	if s == "" {
		return nil
	}
	n := NormalizeFieldText(s)
	if n == "" {
		return nil
	}
	return &n
}

// ExtractCompanyInfo reads representative, head office address and capital
// stock from a parsed filing. It returns nil when none of them is present.
func ExtractCompanyInfo(root *Node) *CompanyInfo {
	if root == nil {
		return nil
	}

	var name, title string
	if combined := lookupField(root, RepresentativeKeywords); combined != "" {
		rep := SplitTitleAndName(combined)
		if rep.Name != nil {
			name = *rep.Name
		}
		if rep.Title != nil {
			title = *rep.Title
		}
	}
	if nameOnly := lookupField(root, RepresentativeNameKeywords); nameOnly != "" && name == "" {
		name = nameOnly
	}
	if titleOnly := lookupField(root, RepresentativeTitleKeywords); titleOnly != "" && title == "" {
		title = titleOnly
	}

	address := lookupField(root, AddressKeywords)
	capital := lookupField(root, CapitalKeywords)

	info := &CompanyInfo{
		RepresentativeName:  normalizedField(name),
		RepresentativeTitle: normalizedField(title),
		HeadOfficeAddress:   normalizedField(address),
		CapitalStock:        normalizedField(capital),
	}
	if info.RepresentativeName == nil && info.RepresentativeTitle == nil &&
		info.HeadOfficeAddress == nil && info.CapitalStock == nil {
		return nil
	}
	return info
}
