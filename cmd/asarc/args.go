package main

// consoleArgs walks os.Args[1:] one token at a time, mirroring the
// hand-rolled argument cursor the reference asarc tool uses instead of
// a flag-parsing library: the grammar mixes mode switches, sticky
// modifiers and free-form input lists in a way flag.FlagSet doesn't
// model well.
type consoleArgs struct {
	argv []string
	pos  int
}

func newConsoleArgs(argv []string) *consoleArgs {
	return &consoleArgs{argv: argv}
}

// next consumes and returns the next argument, or "" if exhausted.
func (a *consoleArgs) next() string {
	if a.pos < len(a.argv) {
		v := a.argv[a.pos]
		a.pos++
		return v
	}
	return ""
}

// peek returns the next argument without consuming it.
func (a *consoleArgs) peek() string {
	if a.pos < len(a.argv) {
		return a.argv[a.pos]
	}
	return ""
}

// has reports whether count more arguments remain.
func (a *consoleArgs) has(count int) bool {
	return a.pos+count <= len(a.argv)
}

// inputList collects consecutive bare (non-flag) arguments, stopping
// at the next "-"-prefixed token or end of input.
func (a *consoleArgs) inputList() []string {
	var result []string
	for a.has(1) {
		arg := a.peek()
		if len(arg) == 0 || arg[0] == '-' {
			return result
		}
		result = append(result, a.next())
	}
	return result
}
