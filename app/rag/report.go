package rag

import (
	"fmt"
	"time"

	"github.com/xlab/treeprint"

	"GoEstateAI/app/domain"
)

type ItemResult struct {
	URL      string
	Chunks   int
	Warnings []string
	Err      error
}

type Report struct {
	Collection  string
	Items       []ItemResult
	Succeeded   int
	Failed      int
	Started     time.Time
	Finished    time.Time
	Interrupted error
}

// Err is non-nil when the run was interrupted or when every listing failed.
func (r Report) Err() error {
	if r.Interrupted != nil {
		return fmt.Errorf("ingestion interrupted after %d listings: %w", len(r.Items), r.Interrupted)
	}
	if r.Failed > 0 && r.Succeeded == 0 {
		return fmt.Errorf("all %d listings failed, last error: %w", r.Failed, r.Items[len(r.Items)-1].Err)
	}
	return nil
}

// Tree renders the report as listing -> chunks, warnings and error branches.
func (r Report) Tree() string {
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("%s (%d ok, %d failed)", r.Collection, r.Succeeded, r.Failed))
	for _, item := range r.Items {
		status := "✅"
		if item.Err != nil {
			status = "❌"
		}
		branch := tree.AddBranch(fmt.Sprintf("%s %s", status, item.URL))
		branch.AddNode(fmt.Sprintf("chunks: %d", item.Chunks))
		if len(item.Warnings) > 0 {
			w := branch.AddBranch("missing fields")
			for _, f := range item.Warnings {
				w.AddNode(f)
			}
		}
		if item.Err != nil {
			branch.AddNode(fmt.Sprintf("error [%s]: %v", domain.CodeOf(item.Err), item.Err))
		}
	}
	return tree.String()
}
