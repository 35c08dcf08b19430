package tools

// NewStandardRegistry registers every concrete tool scoped to one run's
// workDir and returns the registry the pipeline driver composes per-stage
// subsets from. Grounded on the teacher's common.go InitCommon, adapted
// from a process-wide sync.Once singleton to a per-run value — this
// pipeline can run multiple workspaces concurrently in one process, so the
// registry can't be a global.
func NewStandardRegistry(workDir string, headless bool) (*Registry, error) {
	reg := NewRegistry()
	all := []Tool{
		NewWebProbeTool(headless),
		NewWebInterceptAPITool(headless),
		NewShellTool(workDir),
		NewFileReadTool(workDir),
		NewFileWriteTool(workDir),
		NewFileEditTool(workDir),
		NewGlobTool(workDir),
		NewGrepTool(workDir),
		NewScraperTestTool(workDir),
		NewScraperLintTool(workDir),
	}
	for _, tool := range all {
		if err := reg.Register(tool); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Stage tool-set names, per spec.md §6: the fixed lists the pipeline driver
// passes to Registry.Subset/Definitions for each FSM stage.
var (
	ReconToolSet  = []string{toolWebProbe, toolWebInterceptAPI, toolFileRead}           //nolint:gochecknoglobals
	CodeToolSet   = []string{toolShell, toolFileRead, toolFileWrite, toolFileEdit, toolGlob, toolGrep} //nolint:gochecknoglobals
	TestToolSet   = []string{toolShell, toolFileRead, toolScraperTest, toolScraperLint, toolGlob}      //nolint:gochecknoglobals
	RepairToolSet = []string{toolShell, toolFileRead, toolFileWrite, toolFileEdit, toolWebProbe, toolGlob} //nolint:gochecknoglobals
)
