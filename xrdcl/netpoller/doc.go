// Copyright 2026 The xrootd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package netpoller is a concrete, epoll-backed implementation of
// xrdcl.Poller and xrdcl.Socket for Linux. It gives every registered
// Connection its own non-blocking fd inside one shared epoll instance, and
// fans out readiness events (from one goroutine per EPoller) and tick
// events (from a second goroutine per EPoller) to each Connection's Event
// method; xrdcl.Connection serializes those calls with its mutex.
package netpoller
