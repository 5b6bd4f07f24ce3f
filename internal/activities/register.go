package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.BeginResearchActivity)
	w.RegisterActivity(a.DispatchResearchActivity)
	w.RegisterActivity(a.CompleteResearchActivity)
	w.RegisterActivity(a.FailResearchActivity)
	w.RegisterActivity(a.WriteResearchArtifactsActivity)
}
