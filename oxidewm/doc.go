/*
Oxidewm is a keyboard driven tiling window manager for X11. Every workspace
lays its windows out side by side in equal columns, and every screen shows
one workspace at a time.

# INSTALLATION

To install oxidewm:
 1. Install Go (as per https://go.dev/doc/install or get it from
    your distribution).
 2. Run "go install github.com/oxidewm/oxidewm/oxidewm@latest".

Oxidewm is designed to run from an Xsession session. Add this line to the end
of your ~/.xsession file:

	exec /path/to/your/oxidewm

where the path is wherever "go install" wrote to, usually $HOME/go/bin.

# USAGE

All default keyboard shortcuts involve holding down the Super (Windows) key,
written M below. M and Return open a terminal emulator. M and the arrow keys
move the keyboard focus to the window in that direction, and M, Shift and the
arrow keys move the focused window instead. The pointer follows the focus, and
the focus follows the pointer. M, Shift and 'Q' close the focused window. M
and 'F' toggle the focused window occupying the whole workspace.

Workspaces are numbered from 1 and created on first use. M and '1', '2', etc.
show the 1st, 2nd, etc. workspace. M and Tab, or M and Shift and Tab, cycle
through the existing workspaces. M and 'N' show the lowest numbered workspace
that does not exist yet. A workspace that holds an urgent window, such as a
chat window asking for attention, is marked as urgent until that window is
focused.

Windows that declare themselves as docks, such as status bars, are not tiled.
They are stretched across the top or bottom edge of their screen and the
workspaces are shrunk to leave room for them.

M, Shift and 'R' reload the configuration file in place, keeping every window
where it is. M, Shift and 'E' quit.

# CONTROL

The same commands can be sent to a running oxidewm:

	oxidewm msg GoToWorkspace 3
	oxidewm msg Exec firefox

"oxidewm state" prints every screen, workspace and window as YAML or JSON, and
"oxidewm bar" prints one status line whenever the workspaces or the focused
title change, for a status bar to display. The control socket is at
$XDG_RUNTIME_DIR/oxidewm.sock unless $OXIDEWM_SOCKET or --socket says
otherwise.

# CUSTOMIZATION

The configuration file is the first of $XDG_CONFIG_HOME/oxidewm/config.yml,
~/.config/oxidewm/config.yml and /etc/oxidewm/config.yml that exists, or the
file named by $OXIDEWM_CONFIG or --config. Settings it omits keep their
defaults. For example:

	border_width: 2
	border_color: "#404040"
	border_focus_color: "#ff8800"
	gap: 4
	exec: [nm-applet]
	exec_always: [xsetroot -solid black]
	cmds:
	  - keys: [M, Return]
	    command: Exec
	    args: alacritty
	  - keys: [M, S, "1"]
	    commands:
	      - {command: GoToWorkspace, args: "1"}
	      - {command: Exec, args: "notify-send one"}

Programs listed under exec are started once, when oxidewm starts. Those under
exec_always are also started again on every restart.

Logging is controlled by $OXIDEWM_LOG_LEVEL and $OXIDEWM_LOG_DEV. Setting
$OXIDEWM_METRICS_ADDR, such as "localhost:9323", serves Prometheus metrics at
/metrics on that address.

# DEVELOPMENT

When working on oxidewm, it can be run in a nested X server such as Xephyr:

	Xephyr :9 2>/dev/null &
	DISPLAY=:9 OXIDEWM_SOCKET=/tmp/oxidewm-dev.sock go run ./oxidewm
*/
package main
