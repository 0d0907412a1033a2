// Copyright © 2017 Genome Research Limited
// Author: Sendu Bala <sb10@sanger.ac.uk>.
//
//  This file is part of wr.
//
//  wr is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  wr is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with wr. If not, see <http://www.gnu.org/licenses/>.

package lifecyclereq

// DriverFiles is the handle a LifecycleRequest carries to its owned,
// removable working directory tree (scripts/ and config/). The concrete
// implementation lives in package driverfiles; this interface is what the
// data model needs to know about it.
type DriverFiles interface {
	// RootPath is the absolute path to the directory tree's root.
	RootPath() string
	// HasDirectory reports whether the named subdirectory exists directly
	// under the root (e.g. "config", "scripts").
	HasDirectory(name string) bool
	// Path joins name onto the root path without checking existence.
	Path(name string) string
	// RemoveAll deletes the entire tree. Safe to call more than once.
	RemoveAll() error
}

// TopologyEntry identifies an external resource a lifecycle run manipulated.
type TopologyEntry struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// AssociatedTopology maps a logical name to the external resource it
// corresponds to.
type AssociatedTopology map[string]TopologyEntry

// DeploymentLocationRequest is the request-side deployment location
// descriptor, before DeploymentLocation has parsed and validated it.
type DeploymentLocationRequest struct {
	Name       string
	Type       string
	Properties PropertyBag
}

// LifecycleRequest is immutable once enqueued: a single execution request
// for one lifecycle ("Install", "Configure", ...) against one deployment
// location.
type LifecycleRequest struct {
	RequestID           string
	LifecycleName       string
	DriverFiles         DriverFiles
	ResourceProperties  PropertyBag
	SystemProperties    PropertyBag
	RequestProperties   PropertyBag
	DeploymentLocation  DeploymentLocationRequest
	AssociatedTopology  AssociatedTopology
	KeepFiles           bool
	LoggingContext      map[string]string
}

const obfuscatedProperties = "***obfuscated properties***"

// Redacted returns a copy of r safe to pass to a logger: deployment location
// properties routinely carry credentials (cloud keys, SSH passwords), so
// request_without_dl_properties's approach in the original driver is kept
// here rather than logging the request verbatim.
func (r LifecycleRequest) Redacted() LifecycleRequest {
	if len(r.DeploymentLocation.Properties) == 0 {
		return r
	}
	r.DeploymentLocation.Properties = PropertyBag{
		"***": PropertyValue{Type: PropertyString, Value: obfuscatedProperties},
	}
	return r
}

// Validate checks the three fields the executor requires before it can even
// attempt to resolve a location (spec.md §4.2 stage 1).
func (r *LifecycleRequest) Validate() error {
	if r.RequestID == "" {
		return errMissingField("requestId")
	}
	if r.LifecycleName == "" {
		return errMissingField("lifecycleName")
	}
	if r.DriverFiles == nil {
		return errMissingField("driverFiles")
	}
	return nil
}

type missingFieldError struct{ field string }

func errMissingField(field string) error { return &missingFieldError{field} }

func (e *missingFieldError) Error() string {
	return "request is missing required field: " + e.field
}

// FindRequest is the fixed "Find" lifecycle's input: unlike LifecycleRequest
// it carries no requestId (the caller blocks for a synchronous answer, so
// there's nothing to correlate against a later published outcome).
type FindRequest struct {
	InstanceName       string
	DriverFiles        DriverFiles
	ResourceProperties PropertyBag
	SystemProperties   PropertyBag
	RequestProperties  PropertyBag
	DeploymentLocation DeploymentLocationRequest
	AssociatedTopology AssociatedTopology
	KeepFiles          bool
}

// FindReferenceResult is FindExecutor's synchronous answer (spec.md §4.10).
type FindReferenceResult struct {
	InstanceID         string
	AssociatedTopology AssociatedTopology
	Properties         map[string]interface{}
}
