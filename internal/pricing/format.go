/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pricing

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var won = message.NewPrinter(language.Korean)

// FormatWon renders an amount with digit grouping and the won suffix, e.g. "150,000원".
func FormatWon(amount int64) string { return won.Sprintf("%d원", amount) }

// Summary is the one-line category breakdown shown next to the total,
// e.g. "디자인물: 7,000원 / 집기: 150,000원".
func (q Quote) Summary() string {
	s := ""
	for i, c := range q.Categories {
		if i > 0 {
			s += " / "
		}
		s += c.Category + ": " + FormatWon(c.Amount)
	}
	return s
}
