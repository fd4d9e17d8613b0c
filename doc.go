// Package pdfmerge merges PDF documents and raster images into PDF/A-3b
// files that respect a maximum file size.
//
// # Quick Start
//
//	m, err := pdfmerge.NewMerger()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := m.Merge(ctx, pdfmerge.Request{
//	    OutputPath:    "out/delivery",
//	    InputFiles:    []string{"note.pdf", "receipt.jpg", "scan.tif"},
//	    MaxFileSizeMB: 4,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range res.Documents {
//	    fmt.Println(d.Path, d.Pages)
//	}
//
// # Sources
//
// Each input is classified by its extension, ignoring case:
//
//   - .pdf: every page is copied in order
//   - .jpg, .jpeg, .png, .gif, .bmp: one page holding the image
//   - .tif, .tiff: one page per frame, in frame order
//   - .md, .markdown: rendered through headless Chrome, only with
//     WithMarkdownRenderer
//
// Other files are skipped without error.
//
// # Size Budget
//
// Sources are assigned to output documents in input order. A new document
// starts before a source when the bytes already assigned to the open
// document plus the size of the source exceed the budget. Sizes are those
// of the input files, so skipped files count too. A source larger than the
// budget is never split; it fills a document on its own.
//
// The first document is written to the requested path (".pdf" is appended
// when missing), later ones to "<base>-2.pdf", "<base>-3.pdf", and so on.
// A budget <= 0 disables splitting.
//
// # Attachments and Metadata
//
// Every output document receives a copy of each attachment as an embedded
// file with relationship "Alternative", listed in the catalog's AF array.
// An attachment with key InvoiceKey also gives each document a hybrid-invoice
// XMP packet (see InvoiceProfile). Request.Metadata entries are copied into
// the document information dictionary.
//
// # Conformance
//
// PDF sources are validated as they are added. Pages synthesized from images
// are added with checking suspended, and the complete document is checked
// again when it is closed. Failures are reported as ErrConformance.
package pdfmerge
