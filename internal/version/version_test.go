/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package version

import "testing"

func TestString_DefaultsToDev(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })
	Version = ""
	// test binaries carry no main module version
	if s := String(); s != "dev" {
		t.Fatalf("expected dev, got %q", s)
	}
}

func TestString_LinkTimeVersionWins(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })
	Version = "v1.2.3"
	if s := String(); s != "v1.2.3" {
		t.Fatalf("expected v1.2.3, got %q", s)
	}
}
