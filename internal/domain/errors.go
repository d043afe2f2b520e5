/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "errors"

// Error taxonomy. Callers wrap these with context and test with errors.Is.
var (
	// ErrNotFound: catalog lookup miss, unknown instance or stored project.
	ErrNotFound = errors.New("not found")
	// ErrForbidden: scale or color edit on a fixed item.
	ErrForbidden = errors.New("forbidden")
	// ErrLoadFailed: external mesh could not be fetched or parsed.
	ErrLoadFailed = errors.New("load failed")
	// ErrCorruptDocument: a scene document failed to parse or validate.
	ErrCorruptDocument = errors.New("corrupt document")
	// ErrInvalidInput: rejected numeric or textual input such as a non-positive size.
	ErrInvalidInput = errors.New("invalid input")
)
