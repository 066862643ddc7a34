/*
Package importer converts external task sources into pool task specs.
Two sources are supported: YAML task bundles checked into a repo, and
labeled GitHub issues.

# Task Bundles

A bundle is a YAML list; every entry maps onto one task. Omitted numeric
fields take the same defaults the API applies:

	- title: Fix login redirect
	  description: Users land on / after OAuth.
	  estimate_points: 3
	  priority: 80
	  required_skills: [go, oauth]
	  area: auth
	- title: Bump CI image

# GitHub Issues

Fetch lists open issues carrying a marker label (pool:ready unless
overridden) and reads sizing hints from the remaining labels:

	estimate:3  size:3     estimate points, clamped to 1..100
	priority:high          critical=100 high=80 medium=50 low=20
	priority:85            numeric form, passed through as written
	skills:go              required skill, label may repeat
	area:auth              area tag, first one wins

Issues without sizing labels import as estimate 1, priority 50. The
issue body becomes the task description, prefixed with a line linking
back to the issue. Pull requests appear in GitHub's issues listing as
well; they are skipped.

# Integration Points

  - pkg/client: produced specs feed Client.CreateTask
  - cmd/owp: admin import-tasks and import-github-issues subcommands
*/
package importer
