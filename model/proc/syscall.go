package proc

// Syscall identifies a system call for per-process accounting.
type Syscall int

const (
	SysFork Syscall = iota + 1
	SysExit
	SysWait
	SysKill
	SysGetPID
	SysSleep
	SysUptime
	SysYield
	SysWork
	SysChangeQueue
	SysSetParameters
	SysShmOpen
	SysShmClose
	SysShmLock
	SysShmUnlock
	maxSyscall
)

// NumSyscalls bounds the syscall numbers.
const NumSyscalls = int(maxSyscall)

var syscallNames = map[Syscall]string{
	SysFork:          "fork",
	SysExit:          "exit",
	SysWait:          "wait",
	SysKill:          "kill",
	SysGetPID:        "getpid",
	SysSleep:         "sleep",
	SysUptime:        "uptime",
	SysYield:         "yield",
	SysWork:          "work",
	SysChangeQueue:   "change_queue",
	SysSetParameters: "set_process_parameters",
	SysShmOpen:       "shm_open",
	SysShmClose:      "shm_close",
	SysShmLock:       "shm_lock",
	SysShmUnlock:     "shm_unlock",
}

func (s Syscall) String() string {
	if name, ok := syscallNames[s]; ok {
		return name
	}
	return "unknown"
}
