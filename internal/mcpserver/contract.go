package mcpserver

// FrontmatterContract describes the header keys the sync pipeline
// recognizes, for LLM consumers authoring or fixing corpus documents.
const FrontmatterContract = `# Raido Frontmatter Contract

Every Markdown document synced to the CMS MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title         # REQUIRED – 3-120 characters, maps to the item name
date: 2025-01-15                    # REQUIRED – ISO-8601 date or datetime
push_to_webflow: true               # REQUIRED to sync – documents opt in; false or absent means skipped
published: false                    # OPTIONAL – false or absent keeps the item a draft
slug: custom-slug                   # OPTIONAL – derived from the title when absent
excerpt: Short teaser text.         # OPTIONAL – derived from the body (160 chars) when absent
tags:                               # OPTIONAL – list or single value
  - tag-one
featured: false                     # OPTIONAL – boolean
seo:                                # OPTIONAL – nested SEO overrides
  title: SEO title
  description: SEO description
post_id: "65f1c..."                 # MANAGED – written back automatically after the first sync
---

Body text in standard Markdown; it is rendered to HTML before upload.
` + "```" + `

## Rules

1. **The ` + "`" + `---` + "`" + ` fences must open the file.** A document without a block is
   valid but field-less, so it cannot satisfy the required keys.
2. **Booleans coerce uniformly.** ` + "`" + `true` + "`" + `/` + "`" + `yes` + "`" + `/` + "`" + `1` + "`" + ` (any case) are true;
   everything else, including absence, is false.
3. **Never invent ` + "`" + `post_id` + "`" + `.** It binds the document to an existing CMS
   record; the sync writes it back after creating one. A stale value fails
   the document rather than creating a duplicate.
4. **Slug collisions are not resolved locally.** Two documents with the
   same derived slug become two CMS records.
`
