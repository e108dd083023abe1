// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
ledgerd is a node of a small append-only ledger network written in Go.

Every node holds a chain of blocks that starts at a shared genesis block.  Nodes
connect to each other over websockets and exchange their latest blocks.  When a
peer announces a block that extends the local chain it is appended, and when a
peer knows a longer valid chain the local one is replaced by it.  Every change
to the local chain is announced to all connected peers.

The default options are sane for most users.  This means ledgerd will work 'out
of the box' for most users.  However, there are also a wide variety of flags
that can be used to control it.

The following section provides a usage overview which enumerates the flags.  An
interesting point to note is that the long form of all of these options
(except -C) can be specified in a configuration file that is automatically
parsed when ledgerd starts up.  By default, the configuration file is located at
~/.ledgerd/ledgerd.conf on POSIX-style operating systems and
%LOCALAPPDATA%\ledgerd\ledgerd.conf on Windows.  The -C (--configfile) flag, as
shown below, can be used to override this location.

Usage:

	ledgerd [OPTIONS]

Application Options:

	-V, --version         Display version information and exit
	-A, --appdata=        Path to application home directory
	-C, --configfile=     Path to configuration file
	    --logdir=         Directory to log output
	    --nofilelogging   Disable file logging
	-d, --debuglevel=     Logging level for all subsystems {trace, debug,
	                      info, warn, error, critical} -- You may also
	                      specify
	                      <subsystem>=<level>,<subsystem2>=<level>,... to
	                      set the log level for individual subsystems --
	                      Use show to list available subsystems (info)
	    --genesisdata=    Data carried by the genesis block -- Must match
	                      every other node of the network (my genesis
	                      block!!)
	    --listen=         Interface/port to listen for websocket peer
	                      connections (:6001) [$LEDGERD_LISTEN]
	    --peer=           Websocket URL of a peer to connect to at startup
	                      (ws://host:port) -- May be specified multiple
	                      times [$LEDGERD_PEERS]
	    --proxy=          Connect to peers via SOCKS5 proxy (eg.
	                      127.0.0.1:9050)
	    --proxyuser=      Username for proxy server
	    --proxypass=      Password for proxy server
	    --dialtimeout=    How long to wait for an outbound connection to
	                      complete its handshake (30s)
	    --writetimeout=   How long a single write to a peer may take before
	                      the peer is dropped (10s)
	    --maxframesize=   Maximum size in bytes of a single frame received
	                      from a peer (33554432)
	    --rpclisten=      Add an interface/port to listen for HTTP control
	                      API requests (default :3001) [$LEDGERD_RPCLISTEN]
	    --norpc           Disable the HTTP control API

Help Options:

	-h, --help            Show this help message

The control API serves the following endpoints:

	GET  /blocks      The full local chain
	POST /mineBlock   Append a block carrying {"data": "..."} and announce it
	GET  /peers       The websocket URLs of all connected peers
	POST /addPeer     Connect to the peer {"peer": "ws://host:port"}
*/
package main
