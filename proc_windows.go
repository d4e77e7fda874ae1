package regionbench

import "os/exec"

// Windows has no process groups to signal; the default Cancel kills the
// direct child and WaitDelay releases the pipes.
func killProcessGroup(cmd *exec.Cmd) {}
