package importer

// Entry is a single bookmark in an export file.
type Entry struct {
	Title string   `yaml:"title"`
	URL   string   `yaml:"url"`
	Tags  []string `yaml:"tags"`
}

// ExportFile is the root structure of a bookmark export: a flat list.
//
//	- title: Go Blog
//	  url: https://go.dev/blog
//	  tags: [go, news]
type ExportFile []Entry
