/*
Copyright © 2024 the fesom authors.
This file is part of fesom.

fesom is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

fesom is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with fesom.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command fesom is a command-line interface for working with FESOM
// ocean model meshes and model output.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/fesom/fesomutil"
)

func main() {
	if err := fesomutil.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}
