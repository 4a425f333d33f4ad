// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the poll-mode readiness reactor used by the event
// loop: epoll on Linux, an unsupported stub elsewhere.
package reactor
