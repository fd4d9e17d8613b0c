package pdfmerge

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"maps"
	"os"
	"os/user"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/alnah/go-pdfmerge/internal/pdfa"
)

// defaultInvoiceTitle is the dc:title of invoice documents without a Title entry.
const defaultInvoiceTitle = "Invoice"

// invoiceXMP holds the values substituted into the invoice packet.
type invoiceXMP struct {
	CreateDate   string
	ModifyDate   string
	MetadataDate string
	Creator      string
	Title        string
	Description  string
	Keywords     string
	Producer     string
	CreatorTool  string
	Filename     string
	Profile      InvoiceProfile
	DocumentID   string
	InstanceID   string
}

// xpacketBegin carries the byte-order mark the XMP packet header requires.
const xpacketBegin = "<?xpacket begin=\"\ufeff\" id=\"W5M0MpCehiHzreSzNTczkc9d\"?>\n"

const invoiceXMPBody = `<x:xmpmeta xmlns:x="adobe:ns:meta/">
  <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
    <rdf:Description rdf:about=""
        xmlns:pdf="http://ns.adobe.com/pdf/1.3/"
        xmlns:xmp="http://ns.adobe.com/xap/1.0/"
        xmlns:xmpMM="http://ns.adobe.com/xap/1.0/mm/"
        xmlns:fx="urn:factur-x:pdfa:CrossIndustryDocument:invoice:1p0#"
        xmlns:dc="http://purl.org/dc/elements/1.1/"
        xmlns:pdfaExtension="http://www.aiim.org/pdfa/ns/extension/"
        xmlns:pdfaSchema="http://www.aiim.org/pdfa/ns/schema#"
        xmlns:pdfaProperty="http://www.aiim.org/pdfa/ns/property#"
        xmlns:pdfaid="http://www.aiim.org/pdfa/ns/id/">
      <pdfaid:part>3</pdfaid:part>
      <pdfaid:conformance>B</pdfaid:conformance>
      <pdf:Producer>{{xml .Producer}}</pdf:Producer>
      <pdf:Keywords>{{xml .Keywords}}</pdf:Keywords>
      <xmp:CreateDate>{{.CreateDate}}</xmp:CreateDate>
      <xmp:ModifyDate>{{.ModifyDate}}</xmp:ModifyDate>
      <xmp:MetadataDate>{{.MetadataDate}}</xmp:MetadataDate>
      <xmp:CreatorTool>{{xml .CreatorTool}}</xmp:CreatorTool>
      <xmpMM:DocumentID>{{.DocumentID}}</xmpMM:DocumentID>
      <xmpMM:InstanceID>{{.InstanceID}}</xmpMM:InstanceID>
      <dc:format>application/pdf</dc:format>
      <dc:title>
        <rdf:Alt>
          <rdf:li xml:lang="x-default">{{xml .Title}}</rdf:li>
        </rdf:Alt>
      </dc:title>
      <dc:creator>
        <rdf:Seq>
          <rdf:li>{{xml .Creator}}</rdf:li>
        </rdf:Seq>
      </dc:creator>
      <dc:description>
        <rdf:Alt>
          <rdf:li xml:lang="x-default">{{xml .Description}}</rdf:li>
        </rdf:Alt>
      </dc:description>
      <fx:ConformanceLevel>{{xml .Profile.ConformanceLevel}}</fx:ConformanceLevel>
      <fx:DocumentFileName>{{xml .Filename}}</fx:DocumentFileName>
      <fx:DocumentType>{{xml .Profile.DocumentType}}</fx:DocumentType>
      <fx:Version>{{xml .Profile.Version}}</fx:Version>
      <pdfaExtension:schemas>
        <rdf:Bag>
          <rdf:li rdf:parseType="Resource">
            <pdfaSchema:schema>Factur-X PDFA Extension Schema</pdfaSchema:schema>
            <pdfaSchema:namespaceURI>urn:factur-x:pdfa:CrossIndustryDocument:invoice:1p0#</pdfaSchema:namespaceURI>
            <pdfaSchema:prefix>fx</pdfaSchema:prefix>
            <pdfaSchema:property>
              <rdf:Seq>
{{- range .Properties}}
                <rdf:li rdf:parseType="Resource">
                  <pdfaProperty:name>{{.Name}}</pdfaProperty:name>
                  <pdfaProperty:valueType>Text</pdfaProperty:valueType>
                  <pdfaProperty:category>external</pdfaProperty:category>
                  <pdfaProperty:description>{{.Description}}</pdfaProperty:description>
                </rdf:li>
{{- end}}
              </rdf:Seq>
            </pdfaSchema:property>
          </rdf:li>
        </rdf:Bag>
      </pdfaExtension:schemas>
    </rdf:Description>
  </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>
`

// extensionProperty declares one fx property in the PDF/A extension schema.
type extensionProperty struct {
	Name        string
	Description string
}

var invoiceProperties = []extensionProperty{
	{"DocumentFileName", "name of the embedded XML invoice file"},
	{"DocumentType", "INVOICE"},
	{"Version", "The actual version of the Factur-X data"},
	{"ConformanceLevel", "The conformance level of the Factur-X data"},
}

var invoiceXMPTemplate = template.Must(template.New("invoice-xmp").
	Funcs(template.FuncMap{"xml": escapeXML}).
	Parse(xpacketBegin + invoiceXMPBody))

// renderInvoiceXMP fills the invoice packet template.
func renderInvoiceXMP(v invoiceXMP) ([]byte, error) {
	data := struct {
		invoiceXMP
		Properties []extensionProperty
	}{v, invoiceProperties}

	var buf bytes.Buffer
	if err := invoiceXMPTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrXMPMetadata, err)
	}
	return buf.Bytes(), nil
}

// newInvoiceXMP collects the packet values for one output document. info
// holds the document-information entries the document is written with,
// Producer and dates included, so the packet mirrors them. dc:creator is
// the Author entry when set, otherwise userName.
func newInvoiceXMP(filename string, profile InvoiceProfile, info map[string]string, now time.Time, userName string) (invoiceXMP, error) {
	created, err := pdfa.ParseDate(info["CreationDate"])
	if err != nil {
		return invoiceXMP{}, err
	}
	modified, err := pdfa.ParseDate(info["ModDate"])
	if err != nil {
		return invoiceXMP{}, err
	}

	title := info["Title"]
	if title == "" {
		title = defaultInvoiceTitle
	}
	creator := info["Author"]
	if creator == "" {
		creator = userName
	}
	tool := info["Creator"]
	if tool == "" {
		tool = info["Producer"]
	}
	return invoiceXMP{
		CreateDate:   xmpDate(created),
		ModifyDate:   xmpDate(modified),
		MetadataDate: xmpDate(now),
		Creator:      creator,
		Title:        title,
		Description:  info["Subject"],
		Keywords:     info["Keywords"],
		Producer:     info["Producer"],
		CreatorTool:  tool,
		Filename:     filename,
		Profile:      profile.withDefaults(),
		DocumentID:   uuid.New().URN(),
		InstanceID:   uuid.New().URN(),
	}, nil
}

func xmpDate(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// documentInfo returns metadata completed with the entries the PDF writer
// owns: Producer defaults to pdfa.DefaultProducer and both dates to now.
// Fixing them here lets the invoice packet and the document information
// carry identical values.
func documentInfo(metadata map[string]string, now time.Time) map[string]string {
	info := make(map[string]string, len(metadata)+3)
	maps.Copy(info, metadata)
	if info["Producer"] == "" {
		info["Producer"] = pdfa.DefaultProducer
	}
	date := pdfa.FormatDate(now)
	for _, k := range []string{"CreationDate", "ModDate"} {
		if info[k] == "" {
			info[k] = date
		}
	}
	return info
}

func escapeXML(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}

// currentUserName returns the account name of the current user without a
// domain prefix, or "" when it cannot be determined.
func currentUserName() string {
	name := ""
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = os.Getenv("USERNAME")
	}
	if i := strings.LastIndexAny(name, `\/`); i >= 0 {
		name = name[i+1:]
	}
	return name
}
