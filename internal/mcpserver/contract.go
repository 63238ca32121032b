package mcpserver

// SeedFormatContract describes the YAML catalog seed that the server loads
// and watches.
const SeedFormatContract = `# Catalog Seed Format

The catalog is loaded from a single YAML file. Saving the file reloads the
category tree; a file that fails validation leaves the current catalog in place.

## Structure

` + "```" + `yaml
categories:
  - id: pub                 # REQUIRED, unique across all categories
    name: Public Apps       # REQUIRED
    categories:             # OPTIONAL nested subcategories
      - id: seq
        name: Sequencing
apps:
  - id: bwa                 # REQUIRED, unique across all apps
    name: BWA               # REQUIRED
    description: Short read aligner
    integrator: Ana
    favorite: false
    categories: [seq]       # category ids the app is filed under
    components: [bwa-0.7]   # deployed component ids the app runs
components:
  - id: bwa-0.7
    name: bwa
    version: 0.7.17
    location: /usr/local/bin
` + "```" + `

## Rules

1. Top-level categories are shown in file order. Subcategories are sorted by name.
2. A category's app count is the number of distinct apps filed anywhere in its subtree.
3. Every id referenced from ` + "`" + `apps[].categories` + "`" + ` or ` + "`" + `apps[].components` + "`" + ` must exist.
4. Category names need not be unique; lookups by name return the first match in
   pre-order (roots in file order, then children).
`
