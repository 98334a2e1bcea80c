package banner

import "fmt"

const Version = "1.0.0"

func Print() {
	banner := `
    ____        __           __  ___     __       _
   / __ \__  __/ /_______   /  |/  /__  / /______(_)_________
  / /_/ / / / / / ___/ _ \ / /|_/ / _ \/ __/ ___/ / ___/ ___/
 / ____/ /_/ / (__  )  __// /  / /  __/ /_/ /  / / /__(__  )
/_/    \__,_/_/____/\___//_/  /_/\___/\__/_/  /_/\___/____/
            v%s - Campaign Delivery Aggregator
    `
	fmt.Printf(banner, Version)
	fmt.Println("\n------------------------------------------------")
}
