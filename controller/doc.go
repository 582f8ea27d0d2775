// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package controller is a client for the home-automation controller's
// XML web services.
//
// A [Client] holds the endpoint, HTTP transport, and envelope codec.
// [Client.Authenticate] exchanges credentials for a [Session], which
// owns the session cookie and performs every further call:
//
//	client, err := controller.NewClient(controller.ClientConfig{
//	    Endpoint: "http://192.168.1.40",
//	    Logger:   logger,
//	})
//	session, err := client.Authenticate(ctx, controller.Credentials{
//	    Username:    "admin",
//	    Password:    password,
//	    Application: "homewire",
//	})
//	defer session.Close()
//	defer session.Disconnect(ctx)
//
//	for event, err := range session.WatchResources(ctx, []int{4, 7}, watch.Options{}) {
//	    ...
//	}
//
// Calls are POSTed to <endpoint>/ws/<service> with a SOAPAction header
// naming the action. A non-success HTTP status is reported as a
// *TransportError without parsing the body; a SOAP fault in a success
// response is reported as *envelope.Fault.
//
// The session cookie is kept in mlock'd memory (see lib/secret) and is
// never logged unless ClientConfig.LogSensitive is set. Passwords are
// redacted from call records unconditionally.
package controller
