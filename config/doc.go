// Copyright 2025 Poiesic Systems
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

// Package config holds the file-level configuration of an import run.
//
// A YAML file is overlaid onto Default(), so a file only needs to name the
// settings it changes:
//
//	embedding:
//	  host: http://gpu-box:11434
//	  retry_delay: 2s
//	store:
//	  url: ${QDRANT_URL}
//	import:
//	  input: books.json.zst
//	  concurrency: 6
//
// ${VAR} references in string settings are expanded from the environment.
package config
